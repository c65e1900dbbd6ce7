package engine

import "sync"

// Connection is the sans-I/O registry for every channel on one logical
// AMQP connection, plus the request-id bookkeeping that correlates
// issuer calls with their eventual completion. It assumes the
// connection-level handshake (protocol header, Start/StartOk,
// Tune/TuneOk, Open/OpenOk) has already happened elsewhere. It never logs
// or otherwise performs I/O on its own — callers observe it through
// returned errors and the completion-latch accessors below.
type Connection struct {
	mu sync.Mutex

	sink FrameSink

	closed bool

	channels map[ShortUInt]*Channel

	nextRequestID RequestID

	// finishedReqs/finishedGetReqs/generatedNames are plain completion
	// latches rather than futures, keeping the core synchronous: a
	// caller that issued request N polls IsFinished(N) (or the typed
	// variants) instead of blocking on a channel.
	finishedReqs    map[RequestID]struct{}
	finishedGetReqs map[RequestID]*BasicGetMessage
	generatedNames  map[RequestID]ShortString

	connPrefetchSize  LongUInt
	connPrefetchCount ShortUInt
}

// NewConnection builds an empty registry around sink.
func NewConnection(sink FrameSink) *Connection {
	return &Connection{
		sink:            sink,
		channels:        make(map[ShortUInt]*Channel),
		finishedReqs:    make(map[RequestID]struct{}),
		finishedGetReqs: make(map[RequestID]*BasicGetMessage),
		generatedNames:  make(map[RequestID]ShortString),
	}
}

// allocateRequestID hands out the next monotonically increasing request
// id and tracks nothing else about it until a reply completes it.
func (conn *Connection) allocateRequestID() RequestID {
	conn.nextRequestID++
	return conn.nextRequestID
}

func (conn *Connection) markFinished(id RequestID) {
	conn.finishedReqs[id] = struct{}{}
}

// IsFinished reports whether the request with the given id has completed.
func (conn *Connection) IsFinished(id RequestID) bool {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	_, ok := conn.finishedReqs[id]
	return ok
}

func (conn *Connection) markGetFinished(id RequestID, msg *BasicGetMessage) {
	conn.finishedGetReqs[id] = msg
}

// TakeGetResult returns and clears the basic.get result for id, if any has
// completed. The bool is false if the request has not completed yet.
func (conn *Connection) TakeGetResult(id RequestID) (*BasicGetMessage, bool) {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	msg, ok := conn.finishedGetReqs[id]
	if ok {
		delete(conn.finishedGetReqs, id)
	}
	return msg, ok
}

func (conn *Connection) markGeneratedName(id RequestID, name ShortString) {
	conn.generatedNames[id] = name
}

// TakeGeneratedName returns and clears the server-assigned name (e.g. from
// an anonymous queue.declare) produced for request id, if any.
func (conn *Connection) TakeGeneratedName(id RequestID) (ShortString, bool) {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	name, ok := conn.generatedNames[id]
	if ok {
		delete(conn.generatedNames, id)
	}
	return name, ok
}

// OpenChannel registers a new Channel record in the Opening state,
// replacing any record already held for id. ChannelOpen calls it after
// checking that id is free; since ChannelOpen rejects an id that already
// has a record, a record registered here directly cannot then be opened
// through ChannelOpen.
func (conn *Connection) OpenChannel(id ShortUInt) *Channel {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	ch := newChannel(id)
	conn.channels[id] = ch
	return ch
}

// Channel looks up an already-registered channel.
func (conn *Connection) Channel(id ShortUInt) (*Channel, error) {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	ch, ok := conn.channels[id]
	if !ok {
		return nil, &InvalidChannelError{ChannelID: id}
	}
	return ch, nil
}

// RemoveChannel drops a channel record, e.g. after channel.close completes.
func (conn *Connection) RemoveChannel(id ShortUInt) {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	delete(conn.channels, id)
}

// Close marks the connection closed; every subsequent issuer call fails
// with ErrNotConnected.
func (conn *Connection) Close() {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	conn.closed = true
}

func (conn *Connection) checkOpen() error {
	if conn.closed {
		return ErrNotConnected
	}
	return nil
}
