package flowcontrol_test

import (
	"fmt"
	"time"

	"github.com/cometbft/flowcontrol/flowcontrol"
	"github.com/cometbft/flowcontrol/p2p/mock"
	cmttime "github.com/cometbft/flowcontrol/types/time"
)

func ExampleFlowController() {
	clock := cmttime.NewMockableSource(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
	fc, err := flowcontrol.NewFlowController(flowcontrol.DefaultParams(), flowcontrol.WithTimeSource(clock))
	if err != nil {
		panic(err)
	}

	// the handshake attaches the params the peer announced
	peer := mock.NewPeer("")
	flowcontrol.SetPeerParams(peer, flowcontrol.DefaultParams())

	n, _ := fc.MaxRequestCount(peer, "GetBlockHeaders")
	fmt.Println("may request", n, "headers")

	// serving a request of 100 headers from the peer
	bv, _ := fc.ChargeRequest(peer.ID(), "GetBlockHeaders", 100)
	fmt.Println("peer buffer value", bv)

	// a request the peer could never afford
	bv, _ = fc.ChargeRequest(peer.ID(), "GetBlockHeaders", 300_000)
	fmt.Println("drop peer:", bv < 0)

	// Output:
	// may request 299999 headers
	// peer buffer value 299899000
	// drop peer: true
}
