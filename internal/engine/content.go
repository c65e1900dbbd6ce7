package engine

import "fmt"

// ReceiveContentHeader handles the content-header frame that follows a
// basic.deliver or basic.get_ok. It attaches the decoded properties and
// body size to whichever transfer the channel is currently expecting, and
// advances the channel from WillReceiveContent into ReceivingContent (or
// straight to completion, for a zero-length body).
func (conn *Connection) ReceiveContentHeader(channelID ShortUInt, bodySize uint64, props Properties) error {
	ch, err := conn.Channel(channelID)
	if err != nil {
		return err
	}
	if ch.content != contentWillReceiveContent {
		return fmt.Errorf("engine: channel %d received content header while in state %d", channelID, ch.content)
	}
	if d := ch.contentDelivery; d != nil {
		d.Properties = props
	}
	if g := ch.contentGetMessage; g != nil {
		g.Delivery.Properties = props
	}
	ch.content = contentReceivingContent
	ch.contentRemaining = int64(bodySize)
	if ch.contentRemaining == 0 {
		return conn.finishContentTransfer(ch)
	}
	return nil
}

// ReceiveContentBody handles one content-body frame. Bodies may arrive in
// several frames up to the negotiated frame-max; the transfer completes
// once contentRemaining reaches zero.
func (conn *Connection) ReceiveContentBody(channelID ShortUInt, chunk []byte) error {
	ch, err := conn.Channel(channelID)
	if err != nil {
		return err
	}
	if ch.content != contentReceivingContent {
		return fmt.Errorf("engine: channel %d received content body while in state %d", channelID, ch.content)
	}
	if d := ch.contentDelivery; d != nil {
		d.appendBody(chunk)
	}
	if g := ch.contentGetMessage; g != nil {
		g.Delivery.appendBody(chunk)
	}
	ch.contentRemaining -= int64(len(chunk))
	if ch.contentRemaining <= 0 {
		return conn.finishContentTransfer(ch)
	}
	return nil
}

func (conn *Connection) finishContentTransfer(ch *Channel) error {
	defer func() {
		ch.content = contentIdle
		ch.contentDelivery = nil
		ch.contentConsumerTag = ""
		ch.contentGetMessage = nil
		ch.contentGetRequestID = 0
		ch.contentRemaining = 0
	}()

	if d := ch.contentDelivery; d != nil {
		q := findQueueByConsumer(ch, ch.contentConsumerTag)
		if q != nil {
			if c, ok := q.Consumers[ch.contentConsumerTag]; ok && c.Subscriber != nil {
				c.Subscriber.NewDeliveryComplete(d)
			}
		}
		return nil
	}

	if g := ch.contentGetMessage; g != nil {
		conn.markGetFinished(ch.contentGetRequestID, g)
		conn.markFinished(ch.contentGetRequestID)
		return nil
	}

	return nil
}

// PublishContentHeader sends the content-header frame for a just-issued
// basic.publish. The caller supplies bodySize so the peer knows how many
// content-body bytes to expect.
func (conn *Connection) PublishContentHeader(channelID ShortUInt, bodySize uint64, props Properties) error {
	ch, err := conn.Channel(channelID)
	if err != nil {
		return err
	}
	if ch.content != contentSendingContent {
		return fmt.Errorf("engine: channel %d sent content header while in state %d", channelID, ch.content)
	}
	return conn.sink.Emit(channelID, contentHeaderFrame{BodySize: bodySize, Properties: props})
}

// PublishContentBody sends one content-body frame. The caller is
// responsible for chunking to the negotiated frame-max; this engine does
// not split bodies itself.
func (conn *Connection) PublishContentBody(channelID ShortUInt, chunk []byte, final bool) error {
	ch, err := conn.Channel(channelID)
	if err != nil {
		return err
	}
	if ch.content != contentSendingContent {
		return fmt.Errorf("engine: channel %d sent content body while in state %d", channelID, ch.content)
	}
	if err := conn.sink.Emit(channelID, contentBodyFrame{Payload: chunk}); err != nil {
		return err
	}
	if final {
		ch.content = contentIdle
	}
	return nil
}

// contentHeaderFrame and contentBodyFrame are Method values purely so the
// outbound content frames can travel through the same FrameSink as
// methods; the external codec recognizes them and emits the proper AMQP
// frame types (header/body) rather than a method frame.
type contentHeaderFrame struct {
	baseMethod
	BodySize   uint64
	Properties Properties
}

type contentBodyFrame struct {
	baseMethod
	Payload []byte
}
