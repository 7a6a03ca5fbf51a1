package mock

import (
	cmtsync "github.com/cometbft/flowcontrol/libs/sync"
	"github.com/cometbft/flowcontrol/p2p"
)

type Peer struct {
	mtx cmtsync.RWMutex
	id  p2p.ID
	kv  map[string]any
}

var _ p2p.Peer = (*Peer)(nil)

// NewPeer creates a new mock peer. If id is empty a random one is used.
func NewPeer(id p2p.ID) *Peer {
	if id == "" {
		id = p2p.RandomID()
	}
	return &Peer{
		id: id,
		kv: make(map[string]any),
	}
}

func (mp *Peer) ID() p2p.ID { return mp.id }

func (mp *Peer) Get(key string) any {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	if value, ok := mp.kv[key]; ok {
		return value
	}
	return nil
}

func (mp *Peer) Set(key string, value any) {
	mp.mtx.Lock()
	mp.kv[key] = value
	mp.mtx.Unlock()
}
