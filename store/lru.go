package store

import (
	"bytes"
	"container/list"
)

// LRUStore wraps another Store and keeps the serialized bytes of the most
// recently read entries in memory.
type LRUStore struct {
	underlying Store
	cache      map[Hash]*list.Element
	evictList  *list.List
	maxSize    int
}

type cacheEntry struct {
	hash  Hash
	value []byte
}

// NewLRUStore wraps underlying with a cache of up to maxSize entries;
// non-positive sizes fall back to a default.
func NewLRUStore(underlying Store, maxSize int) *LRUStore {
	if maxSize <= 0 {
		maxSize = 128
	}
	return &LRUStore{
		underlying: underlying,
		cache:      make(map[Hash]*list.Element),
		evictList:  list.New(),
		maxSize:    maxSize,
	}
}

func (l *LRUStore) Put(key Hash, item Serde) error {
	if err := l.underlying.Put(key, item); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := item.Serialize(&buf); err != nil {
		return err
	}
	l.addToCache(key, buf.Bytes())
	return nil
}

func (l *LRUStore) Get(key Hash, into Serde) (bool, error) {
	if elem, ok := l.cache[key]; ok {
		l.evictList.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		if err := into.Deserialize(bytes.NewReader(entry.value)); err != nil {
			return false, err
		}
		return true, nil
	}
	found, err := l.underlying.Get(key, into)
	if err != nil || !found {
		return found, err
	}
	var buf bytes.Buffer
	if err := into.Serialize(&buf); err == nil {
		l.addToCache(key, buf.Bytes())
	}
	return true, nil
}

func (l *LRUStore) Has(key Hash) bool {
	if _, ok := l.cache[key]; ok {
		return true
	}
	return l.underlying.Has(key)
}

func (l *LRUStore) addToCache(hash Hash, value []byte) {
	if elem, ok := l.cache[hash]; ok {
		l.evictList.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}
	elem := l.evictList.PushFront(&cacheEntry{hash: hash, value: value})
	l.cache[hash] = elem
	if l.evictList.Len() > l.maxSize {
		l.evictOldest()
	}
}

func (l *LRUStore) evictOldest() {
	elem := l.evictList.Back()
	if elem == nil {
		return
	}
	l.evictList.Remove(elem)
	delete(l.cache, elem.Value.(*cacheEntry).hash)
}

type CacheStats struct {
	Size    int
	MaxSize int
}

func (l *LRUStore) Stats() CacheStats {
	return CacheStats{Size: len(l.cache), MaxSize: l.maxSize}
}
