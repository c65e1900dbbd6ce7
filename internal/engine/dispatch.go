package engine

// ReceiveMethod is the single entry point for every inbound AMQP method.
// It verifies the channel is in a state that may receive m, looks up the
// channel the method is addressed to, and dispatches on the method's
// concrete type. Anything that completes a pending request marks it
// finished; anything unrecognized on this channel's awaiting FIFO moves
// the channel into the error state.
func (conn *Connection) ReceiveMethod(channelID ShortUInt, m Method) error {
	ch, err := conn.Channel(channelID)
	if err != nil {
		return err
	}

	switch m.(type) {
	case ChannelOpenOk:
		// The only method legal before the channel has finished opening.
		if ch.Status != ChannelStatusOpening {
			ch.Status = ChannelStatusError
			return &UnexpectedAnswerError{ChannelID: ch.ID, Got: m, Want: nil}
		}
	case ChannelCloseOk:
		// Legal only once this side has issued channel.close.
		if ch.Status != ChannelStatusClosing {
			ch.Status = ChannelStatusError
			return &UnexpectedAnswerError{ChannelID: ch.ID, Got: m, Want: nil}
		}
	default:
		if ch.Status != ChannelStatusOpen && ch.Status != ChannelStatusClosing {
			return ErrNotConnected
		}
	}

	switch method := m.(type) {

	case ChannelOpenOk:
		a, err := expectAnswer[AwaitingChannelOpenOk](ch, method)
		if err != nil {
			return err
		}
		ch.Status = ChannelStatusOpen
		conn.markFinished(a.RequestID)
		return nil

	case ChannelFlow:
		// Server-initiated: no FIFO entry, reply immediately.
		ch.receiveFlowActive = method.Active
		return conn.sink.Emit(channelID, ChannelFlowOk{Active: method.Active})

	case ChannelFlowOk:
		_, err := expectAnswer[AwaitingChannelFlowOk](ch, method)
		if err != nil {
			return err
		}
		ch.sendFlowActive = method.Active
		return nil

	case ChannelClose:
		// Server-initiated close: acknowledge and tear the channel down.
		ch.Status = ChannelStatusClosed
		if err := conn.sink.Emit(channelID, ChannelCloseOk{}); err != nil {
			return err
		}
		conn.RemoveChannel(channelID)
		return nil

	case ChannelCloseOk:
		a, err := expectAnswer[AwaitingChannelCloseOk](ch, method)
		if err != nil {
			return err
		}
		ch.Status = ChannelStatusClosed
		conn.markFinished(a.RequestID)
		conn.RemoveChannel(channelID)
		return nil

	case AccessRequestOk:
		a, err := expectAnswer[AwaitingAccessRequestOk](ch, method)
		if err != nil {
			return err
		}
		conn.markFinished(a.RequestID)
		return nil

	case ExchangeDeclareOk:
		a, err := expectAnswer[AwaitingExchangeDeclareOk](ch, method)
		if err != nil {
			return err
		}
		conn.markFinished(a.RequestID)
		return nil

	case ExchangeDeleteOk:
		a, err := expectAnswer[AwaitingExchangeDeleteOk](ch, method)
		if err != nil {
			return err
		}
		conn.markFinished(a.RequestID)
		return nil

	case ExchangeBindOk:
		a, err := expectAnswer[AwaitingExchangeBindOk](ch, method)
		if err != nil {
			return err
		}
		conn.markFinished(a.RequestID)
		return nil

	case ExchangeUnbindOk:
		a, err := expectAnswer[AwaitingExchangeUnbindOk](ch, method)
		if err != nil {
			return err
		}
		conn.markFinished(a.RequestID)
		return nil

	case QueueDeclareOk:
		a, err := expectAnswer[AwaitingQueueDeclareOk](ch, method)
		if err != nil {
			return err
		}
		q := ch.ensureQueue(method.Queue)
		q.MessageCount = method.MessageCount
		q.ConsumerCount = method.ConsumerCount
		conn.markFinished(a.RequestID)
		conn.markGeneratedName(a.RequestID, method.Queue)
		return nil

	case QueueBindOk:
		a, err := expectAnswer[AwaitingQueueBindOk](ch, method)
		if err != nil {
			return err
		}
		for _, q := range ch.Queues {
			if b, ok := q.Bindings[bindingKey{Exchange: a.Exchange, RoutingKey: a.RoutingKey}]; ok {
				b.Active = true
			}
		}
		conn.markFinished(a.RequestID)
		return nil

	case QueuePurgeOk:
		a, err := expectAnswer[AwaitingQueuePurgeOk](ch, method)
		if err != nil {
			return err
		}
		if q, ok := ch.Queues[a.Queue]; ok {
			q.MessageCount = method.MessageCount
		}
		conn.markFinished(a.RequestID)
		return nil

	case QueueDeleteOk:
		a, err := expectAnswer[AwaitingQueueDeleteOk](ch, method)
		if err != nil {
			return err
		}
		delete(ch.Queues, a.Queue)
		conn.markFinished(a.RequestID)
		return nil

	case QueueUnbindOk:
		a, err := expectAnswer[AwaitingQueueUnbindOk](ch, method)
		if err != nil {
			return err
		}
		for _, q := range ch.Queues {
			delete(q.Bindings, bindingKey{Exchange: a.Exchange, RoutingKey: a.RoutingKey})
		}
		conn.markFinished(a.RequestID)
		return nil

	case BasicQosOk:
		a, err := expectAnswer[AwaitingBasicQosOk](ch, method)
		if err != nil {
			return err
		}
		if a.Global {
			conn.connPrefetchSize = a.PrefetchSize
			conn.connPrefetchCount = a.PrefetchCount
		} else {
			ch.prefetchSize = a.PrefetchSize
			ch.prefetchCount = a.PrefetchCount
			ch.prefetchGlobal = a.Global
		}
		conn.markFinished(a.RequestID)
		return nil

	case BasicConsumeOk:
		a, err := expectAnswer[AwaitingBasicConsumeOk](ch, method)
		if err != nil {
			return err
		}
		q := ch.ensureQueue(a.Queue)
		q.Consumers[method.ConsumerTag] = newConsumer(method.ConsumerTag, a.NoLocal, a.NoAck, a.Exclusive, a.NoWait, a.Subscriber)
		conn.markFinished(a.RequestID)
		conn.markGeneratedName(a.RequestID, method.ConsumerTag)
		return nil

	case BasicCancelOk:
		a, err := expectAnswer[AwaitingBasicCancelOk](ch, method)
		if err != nil {
			return err
		}
		cancelConsumerEverywhere(ch, method.ConsumerTag)
		conn.markFinished(a.RequestID)
		return nil

	case BasicDeliver:
		// No FIFO entry: basic.deliver is server-initiated, not a reply to
		// any issuer call.
		q := findQueueByConsumer(ch, method.ConsumerTag)
		d := newDelivery(method.DeliveryTag, method.Exchange, method.RoutingKey, method.Redelivered)
		ch.content = contentWillReceiveContent
		ch.contentConsumerTag = method.ConsumerTag
		ch.contentDelivery = d
		if q != nil {
			if c, ok := q.Consumers[method.ConsumerTag]; ok {
				c.CurrentMessage = d
				c.addPrefetched(d)
			}
		}
		return nil

	case BasicGetOk:
		a, err := expectAnswer[AwaitingBasicGetAnswer](ch, method)
		if err != nil {
			return err
		}
		d := newDelivery(method.DeliveryTag, method.Exchange, method.RoutingKey, method.Redelivered)
		ch.content = contentWillReceiveContent
		ch.contentGetMessage = &BasicGetMessage{Delivery: d, MessageCount: method.MessageCount}
		if q, ok := ch.Queues[a.Queue]; ok {
			q.CurrentGetMessage = ch.contentGetMessage
			q.MessageCount = method.MessageCount
		}
		ch.contentGetRequestID = a.RequestID
		return nil

	case BasicGetEmpty:
		a, err := expectAnswer[AwaitingBasicGetAnswer](ch, method)
		if err != nil {
			return err
		}
		conn.markGetFinished(a.RequestID, nil)
		conn.markFinished(a.RequestID)
		return nil

	case BasicRecoverOk:
		a, err := expectAnswer[AwaitingBasicRecoverOk](ch, method)
		if err != nil {
			return err
		}
		for _, q := range ch.Queues {
			for _, c := range q.Consumers {
				c.dropPrefetchedMessages()
			}
		}
		conn.markFinished(a.RequestID)
		return nil

	case BasicAck:
		n := ch.resolveConfirm(method.DeliveryTag, method.Multiple, false)
		return conn.completePublishConfirms(ch, n, method)

	case BasicNack:
		n := ch.resolveConfirm(method.DeliveryTag, method.Multiple, true)
		return conn.completePublishConfirms(ch, n, method)

	case ConfirmSelectOk:
		a, err := expectAnswer[AwaitingConfirmSelectOk](ch, method)
		if err != nil {
			return err
		}
		ch.confirmMode = true
		conn.markFinished(a.RequestID)
		return nil

	default:
		return &InvalidMethodError{Method: m}
	}
}

// completePublishConfirms pops exactly n entries off the FIFO head — the
// count of tags resolveConfirm just moved out of unacked — and finishes
// each as an AwaitingPublishConfirm. If the head isn't one, the FIFO is
// out of sync with what the channel actually has outstanding, which can
// only mean a protocol violation; the channel moves to Error.
func (conn *Connection) completePublishConfirms(ch *Channel, n int, got Method) error {
	for i := 0; i < n; i++ {
		next := ch.popAwaiting()
		a, ok := next.(AwaitingPublishConfirm)
		if !ok {
			ch.Status = ChannelStatusError
			return &UnexpectedAnswerError{ChannelID: ch.ID, Got: got, Want: next}
		}
		conn.markFinished(a.RequestID)
	}
	return nil
}

func findQueueByConsumer(ch *Channel, tag ShortString) *Queue {
	for _, q := range ch.Queues {
		if _, ok := q.Consumers[tag]; ok {
			return q
		}
	}
	return nil
}
