package engine

// This file holds the outbound issuer methods: one per AMQP method the
// client side is allowed to send. Every issuer follows the same shape —
// guard, encode, emit, allocate, record, return:
//
//  1. Guard: reject if the connection or channel cannot accept the call.
//  2. Encode: build the concrete Method value from the caller's arguments.
//  3. Emit: hand it to the FrameSink.
//  4. Allocate: mint a RequestID for replies that expect one.
//  5. Record: push the matching Answer onto the channel's awaiting FIFO.
//  6. Return: hand the RequestID back so the caller can poll completion.

// channel fetches the channel record for id and verifies it is in the
// Open state before letting an issuer touch it. Opening/Closing/Closed/
// Error are all terminal from the issuer's point of view: none of them
// accept a further request.
func (conn *Connection) channel(id ShortUInt) (*Channel, error) {
	if err := conn.checkOpen(); err != nil {
		return nil, err
	}
	ch, err := conn.Channel(id)
	if err != nil {
		return nil, err
	}
	if ch.Status != ChannelStatusOpen {
		return nil, ErrNotConnected
	}
	return ch, nil
}

// ChannelOpen issues channel.open on a freshly registered channel id. id
// must not already have a channel record — reopening an in-use or
// errored id is rejected rather than silently replacing it.
func (conn *Connection) ChannelOpen(id ShortUInt) (RequestID, error) {
	if err := conn.checkOpen(); err != nil {
		return 0, err
	}
	if _, err := conn.Channel(id); err == nil {
		return 0, ErrNotConnected
	}
	ch := conn.OpenChannel(id)
	if err := conn.sink.Emit(id, ChannelOpen{}); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	ch.pushAwaiting(AwaitingChannelOpenOk{RequestID: reqID})
	return reqID, nil
}

// ChannelFlow issues channel.flow.
func (conn *Connection) ChannelFlow(id ShortUInt, active bool) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	if err := conn.sink.Emit(id, ChannelFlow{Active: active}); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	ch.pushAwaiting(AwaitingChannelFlowOk{RequestID: reqID})
	return reqID, nil
}

// ChannelClose issues channel.close. The channel moves to Closing; the
// record is dropped from the registry only once CloseOk is dispatched.
func (conn *Connection) ChannelClose(id ShortUInt, replyCode ShortUInt, replyText ShortString) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	ch.Status = ChannelStatusClosing
	if err := conn.sink.Emit(id, ChannelClose{ReplyCode: replyCode, ReplyText: replyText}); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	ch.pushAwaiting(AwaitingChannelCloseOk{RequestID: reqID})
	return reqID, nil
}

// AccessRequest issues access.request, the legacy realm-ticket handshake
// still advertised by the protocol. The full 6-argument signature is
// preserved rather than hardcoded.
func (conn *Connection) AccessRequest(id ShortUInt, realm ShortString, exclusive, passive, active, write, read bool) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	m := AccessRequest{Realm: realm, Exclusive: exclusive, Passive: passive, Active: active, Write: write, Read: read}
	if err := conn.sink.Emit(id, m); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	ch.pushAwaiting(AwaitingAccessRequestOk{RequestID: reqID})
	return reqID, nil
}

// ExchangeDeclare issues exchange.declare.
func (conn *Connection) ExchangeDeclare(id ShortUInt, name, kind ShortString, passive, durable, autoDelete, internal, noWait bool, args FieldTable) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	m := ExchangeDeclare{Exchange: name, Type: kind, Passive: passive, Durable: durable, AutoDelete: autoDelete, Internal: internal, NoWait: noWait, Arguments: args}
	if err := conn.sink.Emit(id, m); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	if !noWait {
		ch.pushAwaiting(AwaitingExchangeDeclareOk{RequestID: reqID})
	} else {
		conn.markFinished(reqID)
	}
	return reqID, nil
}

// ExchangeDelete issues exchange.delete.
func (conn *Connection) ExchangeDelete(id ShortUInt, name ShortString, ifUnused, noWait bool) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	m := ExchangeDelete{Exchange: name, IfUnused: ifUnused, NoWait: noWait}
	if err := conn.sink.Emit(id, m); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	if !noWait {
		ch.pushAwaiting(AwaitingExchangeDeleteOk{RequestID: reqID})
	} else {
		conn.markFinished(reqID)
	}
	return reqID, nil
}

// ExchangeBind issues exchange.bind.
func (conn *Connection) ExchangeBind(id ShortUInt, destination, source, routingKey ShortString, noWait bool, args FieldTable) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	m := ExchangeBind{Destination: destination, Source: source, RoutingKey: routingKey, NoWait: noWait, Arguments: args}
	if err := conn.sink.Emit(id, m); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	if !noWait {
		ch.pushAwaiting(AwaitingExchangeBindOk{RequestID: reqID})
	} else {
		conn.markFinished(reqID)
	}
	return reqID, nil
}

// ExchangeUnbind issues exchange.unbind.
func (conn *Connection) ExchangeUnbind(id ShortUInt, destination, source, routingKey ShortString, noWait bool, args FieldTable) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	m := ExchangeUnbind{Destination: destination, Source: source, RoutingKey: routingKey, NoWait: noWait, Arguments: args}
	if err := conn.sink.Emit(id, m); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	if !noWait {
		ch.pushAwaiting(AwaitingExchangeUnbindOk{RequestID: reqID})
	} else {
		conn.markFinished(reqID)
	}
	return reqID, nil
}

// QueueDeclare issues queue.declare. An empty name requests a
// server-generated name, retrieved later via Connection.TakeGeneratedName.
func (conn *Connection) QueueDeclare(id ShortUInt, name ShortString, passive, durable, exclusive, autoDelete, noWait bool, args FieldTable) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	m := QueueDeclare{Queue: name, Passive: passive, Durable: durable, Exclusive: exclusive, AutoDelete: autoDelete, NoWait: noWait, Arguments: args}
	if err := conn.sink.Emit(id, m); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	if name != "" {
		ch.ensureQueue(name)
	}
	if !noWait {
		ch.pushAwaiting(AwaitingQueueDeclareOk{RequestID: reqID})
	} else {
		conn.markFinished(reqID)
	}
	return reqID, nil
}

// QueueBind issues queue.bind.
func (conn *Connection) QueueBind(id ShortUInt, queue, exchange, routingKey ShortString, noWait bool, args FieldTable) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	m := QueueBind{Queue: queue, Exchange: exchange, RoutingKey: routingKey, NoWait: noWait, Arguments: args}
	if err := conn.sink.Emit(id, m); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	q := ch.ensureQueue(queue)
	bk := bindingKey{Exchange: exchange, RoutingKey: routingKey}
	binding := &Binding{Exchange: exchange, RoutingKey: routingKey, NoWait: noWait}
	q.Bindings[bk] = binding
	if !noWait {
		ch.pushAwaiting(AwaitingQueueBindOk{RequestID: reqID, Exchange: exchange, RoutingKey: routingKey})
	} else {
		conn.markFinished(reqID)
	}
	return reqID, nil
}

// QueuePurge issues queue.purge.
func (conn *Connection) QueuePurge(id ShortUInt, queue ShortString, noWait bool) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	m := QueuePurge{Queue: queue, NoWait: noWait}
	if err := conn.sink.Emit(id, m); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	if !noWait {
		ch.pushAwaiting(AwaitingQueuePurgeOk{RequestID: reqID, Queue: queue})
	} else {
		conn.markFinished(reqID)
	}
	return reqID, nil
}

// QueueDelete issues queue.delete.
func (conn *Connection) QueueDelete(id ShortUInt, queue ShortString, ifUnused, ifEmpty, noWait bool) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	m := QueueDelete{Queue: queue, IfUnused: ifUnused, IfEmpty: ifEmpty, NoWait: noWait}
	if err := conn.sink.Emit(id, m); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	if !noWait {
		ch.pushAwaiting(AwaitingQueueDeleteOk{RequestID: reqID, Queue: queue})
	} else {
		delete(ch.Queues, queue)
		conn.markFinished(reqID)
	}
	return reqID, nil
}

// QueueUnbind issues queue.unbind. Unlike the other queue methods this one
// has no NoWait bit on the wire — the server always replies.
func (conn *Connection) QueueUnbind(id ShortUInt, queue, exchange, routingKey ShortString, args FieldTable) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	m := QueueUnbind{Queue: queue, Exchange: exchange, RoutingKey: routingKey, Arguments: args}
	if err := conn.sink.Emit(id, m); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	ch.pushAwaiting(AwaitingQueueUnbindOk{RequestID: reqID, Exchange: exchange, RoutingKey: routingKey})
	return reqID, nil
}

// BasicQos issues basic.qos. Per AMQP semantics, Global=true sets the
// connection-wide default instead of this channel's own.
func (conn *Connection) BasicQos(id ShortUInt, prefetchSize LongUInt, prefetchCount ShortUInt, global bool) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	m := BasicQos{PrefetchSize: prefetchSize, PrefetchCount: prefetchCount, Global: global}
	if err := conn.sink.Emit(id, m); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	ch.pushAwaiting(AwaitingBasicQosOk{RequestID: reqID, PrefetchSize: prefetchSize, PrefetchCount: prefetchCount, Global: global})
	return reqID, nil
}

// BasicConsume issues basic.consume, registering subscriber against the
// (not-yet-confirmed) consumer tag.
func (conn *Connection) BasicConsume(id ShortUInt, queue, consumerTag ShortString, noLocal, noAck, exclusive, noWait bool, args FieldTable, subscriber ConsumerSubscriber) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	m := BasicConsume{Queue: queue, ConsumerTag: consumerTag, NoLocal: noLocal, NoAck: noAck, Exclusive: exclusive, NoWait: noWait, Arguments: args}
	if err := conn.sink.Emit(id, m); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	if !noWait {
		ch.pushAwaiting(AwaitingBasicConsumeOk{
			RequestID: reqID, Queue: queue, ConsumerTag: consumerTag,
			NoLocal: noLocal, NoAck: noAck, Exclusive: exclusive, NoWait: noWait,
			Subscriber: subscriber,
		})
	} else {
		q := ch.ensureQueue(queue)
		q.Consumers[consumerTag] = newConsumer(consumerTag, noLocal, noAck, exclusive, noWait, subscriber)
		conn.markFinished(reqID)
	}
	return reqID, nil
}

// BasicCancel issues basic.cancel.
func (conn *Connection) BasicCancel(id ShortUInt, consumerTag ShortString, noWait bool) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	m := BasicCancel{ConsumerTag: consumerTag, NoWait: noWait}
	if err := conn.sink.Emit(id, m); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	if !noWait {
		ch.pushAwaiting(AwaitingBasicCancelOk{RequestID: reqID})
	} else {
		cancelConsumerEverywhere(ch, consumerTag)
		conn.markFinished(reqID)
	}
	return reqID, nil
}

func cancelConsumerEverywhere(ch *Channel, tag ShortString) {
	for _, q := range ch.Queues {
		if c, ok := q.Consumers[tag]; ok {
			c.cancel()
			delete(q.Consumers, tag)
		}
	}
}

// BasicPublish issues basic.publish. The content header/body must follow
// via PublishContentHeader/PublishContentBody (content.go). The return
// value is a delivery tag, not a request id: 0 when the channel is not in
// confirm mode, or the freshly assigned publish sequence number when it
// is, the tag the eventual ack/nack (and Connection.IsFinished) correlate
// against.
func (conn *Connection) BasicPublish(id ShortUInt, exchange, routingKey ShortString, mandatory, immediate bool) (DeliveryTag, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	m := BasicPublish{Exchange: exchange, RoutingKey: routingKey, Mandatory: mandatory, Immediate: immediate}
	if err := conn.sink.Emit(id, m); err != nil {
		return 0, err
	}
	ch.content = contentSendingContent
	if !ch.confirmMode {
		return 0, nil
	}
	ch.nextPublishSeqNo++
	tag := ch.nextPublishSeqNo
	ch.markUnacked(tag)
	ch.pushAwaiting(AwaitingPublishConfirm{RequestID: tag})
	return tag, nil
}

// BasicGet issues basic.get. The result, once available, is retrieved
// with Connection.TakeGetResult.
func (conn *Connection) BasicGet(id ShortUInt, queue ShortString, noAck bool) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	m := BasicGet{Queue: queue, NoAck: noAck}
	if err := conn.sink.Emit(id, m); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	ch.pushAwaiting(AwaitingBasicGetAnswer{RequestID: reqID, Queue: queue})
	return reqID, nil
}

// BasicAck acknowledges one or more deliveries. No reply is expected, so
// the locally buffered prefetched copies are dropped immediately rather
// than waiting on anything from the broker.
func (conn *Connection) BasicAck(id ShortUInt, deliveryTag DeliveryTag, multiple bool) error {
	ch, err := conn.channel(id)
	if err != nil {
		return err
	}
	ch.dropPrefetchedAck(deliveryTag, multiple)
	return conn.sink.Emit(id, BasicAck{DeliveryTag: deliveryTag, Multiple: multiple})
}

// BasicReject rejects a single delivery. No reply is expected.
func (conn *Connection) BasicReject(id ShortUInt, deliveryTag DeliveryTag, requeue bool) error {
	_, err := conn.channel(id)
	if err != nil {
		return err
	}
	return conn.sink.Emit(id, BasicReject{DeliveryTag: deliveryTag, Requeue: requeue})
}

// BasicNack negatively acknowledges one or more deliveries. No reply is
// expected; this is the RabbitMQ extension form of reject, and like
// BasicAck it drops the matching prefetched copies at issue time.
func (conn *Connection) BasicNack(id ShortUInt, deliveryTag DeliveryTag, multiple, requeue bool) error {
	ch, err := conn.channel(id)
	if err != nil {
		return err
	}
	ch.dropPrefetchedAck(deliveryTag, multiple)
	return conn.sink.Emit(id, BasicNack{DeliveryTag: deliveryTag, Multiple: multiple, Requeue: requeue})
}

// BasicRecoverAsync issues basic.recover_async (deprecated, no reply). It
// drops every consumer's prefetched-but-unaccepted messages immediately,
// the same as a recover_ok completion does for the synchronous form.
func (conn *Connection) BasicRecoverAsync(id ShortUInt, requeue bool) error {
	ch, err := conn.channel(id)
	if err != nil {
		return err
	}
	for _, q := range ch.Queues {
		for _, c := range q.Consumers {
			c.dropPrefetchedMessages()
		}
	}
	return conn.sink.Emit(id, BasicRecoverAsync{Requeue: requeue})
}

// BasicRecover issues basic.recover, which completes with a bare
// recover-ok and carries no payload to correlate beyond the FIFO position.
func (conn *Connection) BasicRecover(id ShortUInt, requeue bool) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	if err := conn.sink.Emit(id, BasicRecover{Requeue: requeue}); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	ch.pushAwaiting(AwaitingBasicRecoverOk{RequestID: reqID})
	return reqID, nil
}

// ConfirmSelect issues confirm.select, switching the channel into
// publisher-confirm mode.
func (conn *Connection) ConfirmSelect(id ShortUInt, noWait bool) (RequestID, error) {
	ch, err := conn.channel(id)
	if err != nil {
		return 0, err
	}
	if err := conn.sink.Emit(id, ConfirmSelect{NoWait: noWait}); err != nil {
		return 0, err
	}
	reqID := conn.allocateRequestID()
	if !noWait {
		ch.pushAwaiting(AwaitingConfirmSelectOk{RequestID: reqID})
	} else {
		ch.confirmMode = true
		conn.markFinished(reqID)
	}
	return reqID, nil
}

// TxSelect, TxCommit and TxRollback are declared for wire completeness
// but the transaction class is out of scope for this engine; issuing
// any of them fails fast rather than silently hanging on a reply that
// will never arrive.
func (conn *Connection) TxSelect(id ShortUInt) (RequestID, error) {
	return 0, ErrNotImplemented
}

func (conn *Connection) TxCommit(id ShortUInt) (RequestID, error) {
	return 0, ErrNotImplemented
}

func (conn *Connection) TxRollback(id ShortUInt) (RequestID, error) {
	return 0, ErrNotImplemented
}
