package cache

// node is an entry of the LRU list. It owns the cached value so that a map
// lookup yields both the value and its list position.
type node[K comparable, V any] struct {
	key   K
	value V
	prev  *node[K, V]
	next  *node[K, V]
}

// list is an intrusive doubly-linked list ordered from most recently used
// (head) to least recently used (tail). Callers synchronize access.
type list[K comparable, V any] struct {
	head *node[K, V]
	tail *node[K, V]
	len  int
}

func (l *list[K, V]) pushFront(n *node[K, V]) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
	l.len++
}

func (l *list[K, V]) moveToFront(n *node[K, V]) {
	if n == l.head {
		return
	}
	l.unlink(n)
	l.pushFront(n)
}

// popBack removes and returns the least recently used node, or nil.
func (l *list[K, V]) popBack() *node[K, V] {
	n := l.tail
	if n == nil {
		return nil
	}
	l.unlink(n)
	return n
}

func (l *list[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev = nil
	n.next = nil
	l.len--
}

func (l *list[K, V]) clear() {
	l.head = nil
	l.tail = nil
	l.len = 0
}
