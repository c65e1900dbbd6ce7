// Package engine is the sans-I/O AMQP 0-9-1 client protocol core: the
// connection/channel state machine and method-exchange bookkeeping that
// drives a single logical connection once the connection-level handshake
// (Start/StartOk, Tune/TuneOk, Open/OpenOk) has already completed.
//
// The package performs no network I/O, schedules no heartbeats, and never
// retries. It only accepts decoded inbound methods and content events, and
// produces outbound methods handed to a caller-supplied FrameSink. Byte-level
// codec work and the transport itself live outside this package.
package engine

import (
	amqp091 "github.com/rabbitmq/amqp091-go"
)

// Wire primitive types, named as reflected at the boundary with the
// external frame codec.
type (
	ShortString   = string
	ShortUInt     = uint16
	LongUInt      = uint32
	LongLongUInt  = uint64
	Boolean       = bool
	FieldTable    = amqp091.Table
	FieldDecimal  = amqp091.Decimal
	RequestID     = uint64
	DeliveryTag   = uint64
)

// Properties mirrors the AMQP 0-9-1 basic content-header properties, the
// shape reused unmodified from message header frames onto every Delivery
// and BasicGetMessage.
type Properties struct {
	ContentType     string
	ContentEncoding string
	Headers         FieldTable
	DeliveryMode    uint8
	Priority        uint8
	CorrelationID   string
	ReplyTo         string
	Expiration      string
	MessageID       string
	Timestamp       int64
	Type            string
	UserID          string
	AppID           string
}

// Delivery is the client-side view of a message transfer started by a
// basic.deliver. It is created empty when Deliver arrives and filled
// progressively as content header/body events arrive (see content.go).
type Delivery struct {
	DeliveryTag DeliveryTag
	Exchange    ShortString
	RoutingKey  ShortString
	Redelivered bool
	Properties  Properties
	Data        []byte

	bodyRemaining int64
}

func newDelivery(tag DeliveryTag, exchange, routingKey ShortString, redelivered bool) *Delivery {
	return &Delivery{
		DeliveryTag: tag,
		Exchange:    exchange,
		RoutingKey:  routingKey,
		Redelivered: redelivered,
	}
}

func (d *Delivery) appendBody(chunk []byte) {
	d.Data = append(d.Data, chunk...)
}

// BasicGetMessage is the client-side view of a message transfer started by
// a basic.get_ok. MessageCount is the broker-reported number of messages
// still ready on the queue at the moment of the GetOk.
type BasicGetMessage struct {
	Delivery     *Delivery
	MessageCount LongUInt
}

// Binding is the client-side shadow of a queue/exchange binding. Active
// becomes true only once the matching BindOk has been observed.
type Binding struct {
	Exchange   ShortString
	RoutingKey ShortString
	NoWait     bool
	Active     bool
}

// ConsumerSubscriber is the capability supplied by users of basic.consume.
type ConsumerSubscriber interface {
	// NewDeliveryComplete is called when a full message has arrived.
	NewDeliveryComplete(delivery *Delivery)
	// Cancel is called when the consumer is cancelled locally.
	Cancel()
}

// Consumer is the client-side shadow of a basic.consume subscription.
type Consumer struct {
	Tag        ShortString
	NoLocal    bool
	NoAck      bool
	Exclusive  bool
	NoWait     bool
	Subscriber ConsumerSubscriber

	CurrentMessage *Delivery
	Cancelled      bool

	prefetched []*Delivery
}

func newConsumer(tag ShortString, noLocal, noAck, exclusive, noWait bool, subscriber ConsumerSubscriber) *Consumer {
	return &Consumer{
		Tag:        tag,
		NoLocal:    noLocal,
		NoAck:      noAck,
		Exclusive:  exclusive,
		NoWait:     noWait,
		Subscriber: subscriber,
	}
}

func (c *Consumer) cancel() {
	if c.Cancelled {
		return
	}
	c.Cancelled = true
	if c.Subscriber != nil {
		c.Subscriber.Cancel()
	}
}

// dropPrefetchedMessages discards buffered-but-not-yet-accepted messages,
// per basic.recover's requeue-from-scratch behavior.
func (c *Consumer) dropPrefetchedMessages() {
	c.prefetched = nil
}

// addPrefetched records a just-delivered message as outstanding until it
// is acked, nacked, or dropped by a recover.
func (c *Consumer) addPrefetched(d *Delivery) {
	c.prefetched = append(c.prefetched, d)
}

// dropPrefetchedTag removes the single buffered message with the given
// delivery tag, if any is still outstanding.
func (c *Consumer) dropPrefetchedTag(tag DeliveryTag) {
	for i, d := range c.prefetched {
		if d.DeliveryTag == tag {
			c.prefetched = append(c.prefetched[:i], c.prefetched[i+1:]...)
			return
		}
	}
}

// dropPrefetchedUpTo removes every buffered message with a delivery tag
// at or below tag (tag == 0 meaning "all of them").
func (c *Consumer) dropPrefetchedUpTo(tag DeliveryTag) {
	if tag == 0 {
		c.prefetched = nil
		return
	}
	kept := c.prefetched[:0]
	for _, d := range c.prefetched {
		if d.DeliveryTag > tag {
			kept = append(kept, d)
		}
	}
	c.prefetched = kept
}

// Queue is the client-side shadow of a declared queue.
type Queue struct {
	Name          ShortString
	MessageCount  LongUInt
	ConsumerCount LongUInt

	Bindings map[bindingKey]*Binding
	Consumers map[ShortString]*Consumer

	CurrentGetMessage *BasicGetMessage
}

type bindingKey struct {
	Exchange   ShortString
	RoutingKey ShortString
}

func newQueue(name ShortString, messageCount, consumerCount LongUInt) *Queue {
	return &Queue{
		Name:          name,
		MessageCount:  messageCount,
		ConsumerCount: consumerCount,
		Bindings:      make(map[bindingKey]*Binding),
		Consumers:     make(map[ShortString]*Consumer),
	}
}
