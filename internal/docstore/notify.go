package docstore

import "sync"

// notifier fans out per-document change snapshots to subscribers.
// Delivery is asynchronous and advisory; a subscriber may observe
// snapshots out of order under concurrent writes.
type notifier struct {
	mu     sync.Mutex
	nextID int64
	subs   map[string]map[int64]func(*Document)
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[int64]func(*Document))}
}

func docKey(collection, id string) string {
	return collection + "/" + id
}

func (n *notifier) subscribe(collection, id string, onChange func(*Document)) Unsubscribe {
	key := docKey(collection, id)

	n.mu.Lock()
	n.nextID++
	subID := n.nextID
	if n.subs[key] == nil {
		n.subs[key] = make(map[int64]func(*Document))
	}
	n.subs[key][subID] = onChange
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs[key], subID)
		if len(n.subs[key]) == 0 {
			delete(n.subs, key)
		}
	}
}

// notify delivers a snapshot (nil for deletion) to every subscriber of
// the document.
func (n *notifier) notify(collection, id string, doc *Document) {
	key := docKey(collection, id)

	n.mu.Lock()
	callbacks := make([]func(*Document), 0, len(n.subs[key]))
	for _, fn := range n.subs[key] {
		callbacks = append(callbacks, fn)
	}
	n.mu.Unlock()

	for _, fn := range callbacks {
		go fn(snapshotCopy(doc))
	}
}

func snapshotCopy(doc *Document) *Document {
	if doc == nil {
		return nil
	}
	out := *doc
	out.Fields = copyValue(doc.Fields).(map[string]any)
	return &out
}
