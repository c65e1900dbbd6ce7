package engine

// ChannelStatus is the channel's coarse lifecycle state.
type ChannelStatus int

const (
	ChannelStatusOpening ChannelStatus = iota
	ChannelStatusOpen
	ChannelStatusClosing
	ChannelStatusClosed
	ChannelStatusError
)

func (s ChannelStatus) String() string {
	switch s {
	case ChannelStatusOpening:
		return "opening"
	case ChannelStatusOpen:
		return "open"
	case ChannelStatusClosing:
		return "closing"
	case ChannelStatusClosed:
		return "closed"
	case ChannelStatusError:
		return "error"
	default:
		return "unknown"
	}
}

// contentSubState tracks where a channel is in a content header/body
// sequence. A channel is in exactly one of these at a time; idle is the
// zero value, used between method frames.
type contentSubState int

const (
	contentIdle contentSubState = iota
	contentSendingContent
	contentWillReceiveContent
	contentReceivingContent
)

// Channel is the client-side state machine for one AMQP channel: pending
// replies, QoS, confirm bookkeeping, and the declared queues it has seen.
// It never touches the network; every mutation happens in response to an
// issuer call (issue.go) or a dispatched inbound method (dispatch.go).
type Channel struct {
	ID     ShortUInt
	Status ChannelStatus

	awaiting []Answer

	sendFlowActive    bool
	receiveFlowActive bool

	prefetchSize   LongUInt
	prefetchCount  ShortUInt
	prefetchGlobal bool

	confirmMode       bool
	nextPublishSeqNo  DeliveryTag
	unacked           map[DeliveryTag]struct{}
	acked             map[DeliveryTag]struct{}
	nacked            map[DeliveryTag]struct{}

	Queues map[ShortString]*Queue

	// content and the contentXxx fields below describe the in-flight
	// header/body transfer, valid only while content != contentIdle.
	content             contentSubState
	contentConsumerTag  ShortString
	contentRemaining    int64
	contentDelivery     *Delivery
	contentGetMessage   *BasicGetMessage
	contentGetRequestID RequestID
}

func newChannel(id ShortUInt) *Channel {
	return &Channel{
		ID:                id,
		Status:            ChannelStatusOpening,
		sendFlowActive:    true,
		receiveFlowActive: true,
		unacked:           make(map[DeliveryTag]struct{}),
		acked:             make(map[DeliveryTag]struct{}),
		nacked:            make(map[DeliveryTag]struct{}),
		Queues:            make(map[ShortString]*Queue),
	}
}

// pushAwaiting appends a pending-reply token to the FIFO. Order matters:
// AMQP replies on a channel always arrive in the order their requests were
// issued.
func (c *Channel) pushAwaiting(a Answer) {
	c.awaiting = append(c.awaiting, a)
}

// popAwaiting removes and returns the oldest pending-reply token, or nil
// if the FIFO is empty.
func (c *Channel) popAwaiting() Answer {
	if len(c.awaiting) == 0 {
		return nil
	}
	a := c.awaiting[0]
	c.awaiting = c.awaiting[1:]
	return a
}

func (c *Channel) peekAwaiting() Answer {
	if len(c.awaiting) == 0 {
		return nil
	}
	return c.awaiting[0]
}

// expectAnswer pops the next pending reply and type-asserts it into want.
// On mismatch or empty FIFO it transitions the channel into the error
// state and returns an UnexpectedAnswerError — channels never retry their
// way out of that state, they must be closed.
func expectAnswer[T Answer](c *Channel, got Method) (T, error) {
	var zero T
	next := c.popAwaiting()
	typed, ok := next.(T)
	if !ok {
		c.Status = ChannelStatusError
		return zero, &UnexpectedAnswerError{ChannelID: c.ID, Got: got, Want: next}
	}
	return typed, nil
}

func (c *Channel) ensureQueue(name ShortString) *Queue {
	q, ok := c.Queues[name]
	if !ok {
		q = newQueue(name, 0, 0)
		c.Queues[name] = q
	}
	return q
}

// markUnacked records a just-published delivery tag as awaiting its
// publisher confirm.
func (c *Channel) markUnacked(tag DeliveryTag) {
	c.unacked[tag] = struct{}{}
}

// resolveConfirm moves tag (and, if multiple is set, every lower
// outstanding tag) out of unacked into either acked or nacked, and
// returns how many tags it moved. A nack, single or multiple, always
// lands in nacked — it never gets folded back into acked.
func (c *Channel) resolveConfirm(tag DeliveryTag, multiple bool, isNack bool) int {
	dest := c.acked
	if isNack {
		dest = c.nacked
	}
	if !multiple {
		if _, ok := c.unacked[tag]; ok {
			delete(c.unacked, tag)
			dest[tag] = struct{}{}
			return 1
		}
		return 0
	}
	n := 0
	for t := range c.unacked {
		if t <= tag {
			delete(c.unacked, t)
			dest[t] = struct{}{}
			n++
		}
	}
	return n
}

// dropPrefetchedAck removes the locally buffered copies an ack/nack
// issued against this channel has just settled, across every consumer —
// the engine does not track which consumer a delivery tag belongs to
// once it has been handed to the application, so it checks them all.
func (c *Channel) dropPrefetchedAck(tag DeliveryTag, multiple bool) {
	for _, q := range c.Queues {
		for _, cons := range q.Consumers {
			if multiple {
				cons.dropPrefetchedUpTo(tag)
			} else {
				cons.dropPrefetchedTag(tag)
			}
		}
	}
}
