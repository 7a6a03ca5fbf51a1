/*
Package flowcontrol implements buffer value accounting for the request/reply
protocol light clients use to fetch block headers from full nodes.

Every peer's serving capacity is modelled as a credit balance, the buffer
value, which recharges linearly at RechargeRate credits per millisecond up to
BufferLimit. Serving or sending a request costs Base + PerItem*count credits,
priced per message kind.

A FlowController keeps two independent ledgers keyed by peer ID:

  - the outbound ledger, holding the credit this node grants each peer for
    requests the peer sends us. ChargeRequest spends from it and signals
    with a negative return value that the peer went over budget and must be
    disconnected. The entry is removed at the same time, so a reconnecting
    peer starts again from a full buffer.

  - the inbound ledger, estimating the credit each peer has left for requests
    we send it. RecordAnnouncement overwrites the estimate with the buffer
    value the peer reports in its replies, MaxRequestCount and WaitTime
    recharge it with the parameters the peer announced in its handshake.

The controller never disconnects peers and never blocks. Each peer's entries
are locked individually, so operations on different peers do not contend.
*/
package flowcontrol
