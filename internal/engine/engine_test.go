package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures every outbound method so tests can assert on
// what the engine would have put on the wire.
type recordingSink struct {
	emitted []emittedMethod
}

type emittedMethod struct {
	channelID ShortUInt
	method    Method
}

func (s *recordingSink) Emit(channelID ShortUInt, m Method) error {
	s.emitted = append(s.emitted, emittedMethod{channelID: channelID, method: m})
	return nil
}

type fakeSubscriber struct {
	delivered []*Delivery
	cancelled int
}

func (f *fakeSubscriber) NewDeliveryComplete(d *Delivery) {
	f.delivered = append(f.delivered, d)
}

func (f *fakeSubscriber) Cancel() {
	f.cancelled++
}

func TestChannelOpenDeclareClose(t *testing.T) {
	sink := &recordingSink{}
	conn := NewConnection(sink)

	reqOpen, err := conn.ChannelOpen(1)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ChannelOpenOk{}))
	assert.True(t, conn.IsFinished(reqOpen))

	reqDeclare, err := conn.QueueDeclare(1, "orders", false, true, false, false, false, nil)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, QueueDeclareOk{Queue: "orders", MessageCount: 0, ConsumerCount: 0}))
	assert.True(t, conn.IsFinished(reqDeclare))

	ch, err := conn.Channel(1)
	require.NoError(t, err)
	assert.Contains(t, ch.Queues, ShortString("orders"))

	reqClose, err := conn.ChannelClose(1, 200, "bye")
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ChannelCloseOk{}))
	assert.True(t, conn.IsFinished(reqClose))

	_, err = conn.Channel(1)
	assert.Error(t, err, "channel record should be removed after CloseOk")
}

func TestUnexpectedAnswerMovesChannelToError(t *testing.T) {
	sink := &recordingSink{}
	conn := NewConnection(sink)

	_, err := conn.ChannelOpen(1)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ChannelOpenOk{}))

	_, err = conn.ExchangeDeclare(1, "orders.topic", "topic", false, true, false, false, false, nil)
	require.NoError(t, err)

	_, err = conn.QueueDeclare(1, "orders", false, true, false, false, false, nil)
	require.NoError(t, err)

	// The FIFO now holds [AwaitingExchangeDeclareOk, AwaitingQueueDeclareOk].
	// Delivering QueueDeclareOk first (out of order) must fail and mark
	// the channel errored, never silently resync.
	err = conn.ReceiveMethod(1, QueueDeclareOk{Queue: "orders"})
	require.Error(t, err)
	var uerr *UnexpectedAnswerError
	assert.ErrorAs(t, err, &uerr)

	ch, chErr := conn.Channel(1)
	require.NoError(t, chErr)
	assert.Equal(t, ChannelStatusError, ch.Status)
}

func TestServerAssignedQueueNameRoundTrip(t *testing.T) {
	sink := &recordingSink{}
	conn := NewConnection(sink)

	_, err := conn.ChannelOpen(1)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ChannelOpenOk{}))

	reqID, err := conn.QueueDeclare(1, "", false, false, true, true, false, nil)
	require.NoError(t, err)

	require.NoError(t, conn.ReceiveMethod(1, QueueDeclareOk{Queue: "amq.gen-XYZ123", MessageCount: 0, ConsumerCount: 0}))

	name, ok := conn.TakeGeneratedName(reqID)
	require.True(t, ok)
	assert.Equal(t, ShortString("amq.gen-XYZ123"), name)

	ch, _ := conn.Channel(1)
	assert.Contains(t, ch.Queues, ShortString("amq.gen-XYZ123"))
}

func TestPublisherConfirmsMultipleAck(t *testing.T) {
	sink := &recordingSink{}
	conn := NewConnection(sink)

	_, err := conn.ChannelOpen(1)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ChannelOpenOk{}))

	_, err = conn.ConfirmSelect(1, false)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ConfirmSelectOk{}))

	req1, err := conn.BasicPublish(1, "orders.topic", "orders.created", false, false)
	require.NoError(t, err)
	require.NoError(t, conn.PublishContentHeader(1, 0, Properties{}))

	req2, err := conn.BasicPublish(1, "orders.topic", "orders.created", false, false)
	require.NoError(t, err)
	require.NoError(t, conn.PublishContentHeader(1, 0, Properties{}))

	req3, err := conn.BasicPublish(1, "orders.topic", "orders.created", false, false)
	require.NoError(t, err)
	require.NoError(t, conn.PublishContentHeader(1, 0, Properties{}))

	// ack(3, multiple=true) should resolve all three outstanding confirms.
	require.NoError(t, conn.ReceiveMethod(1, BasicAck{DeliveryTag: 3, Multiple: true}))

	assert.True(t, conn.IsFinished(req1))
	assert.True(t, conn.IsFinished(req2))
	assert.True(t, conn.IsFinished(req3))

	ch, _ := conn.Channel(1)
	assert.Len(t, ch.acked, 3)
	assert.Empty(t, ch.unacked)
}

func TestReceiveBasicNackMovesToNacked(t *testing.T) {
	sink := &recordingSink{}
	conn := NewConnection(sink)

	_, err := conn.ChannelOpen(1)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ChannelOpenOk{}))

	_, err = conn.ConfirmSelect(1, false)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ConfirmSelectOk{}))

	_, err = conn.BasicPublish(1, "orders.topic", "orders.created", false, false)
	require.NoError(t, err)
	require.NoError(t, conn.PublishContentHeader(1, 0, Properties{}))

	_, err = conn.BasicPublish(1, "orders.topic", "orders.created", false, false)
	require.NoError(t, err)
	require.NoError(t, conn.PublishContentHeader(1, 0, Properties{}))

	// Multiple nack must land every outstanding tag in nacked, never acked.
	require.NoError(t, conn.ReceiveMethod(1, BasicNack{DeliveryTag: 2, Multiple: true, Requeue: true}))

	ch, _ := conn.Channel(1)
	assert.Len(t, ch.nacked, 2)
	assert.Empty(t, ch.acked)
	assert.Empty(t, ch.unacked)
}

func TestSingleAckResolvesOnlyOneConfirm(t *testing.T) {
	sink := &recordingSink{}
	conn := NewConnection(sink)

	_, err := conn.ChannelOpen(1)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ChannelOpenOk{}))

	_, err = conn.ConfirmSelect(1, false)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ConfirmSelectOk{}))

	req1, err := conn.BasicPublish(1, "orders.topic", "orders.created", false, false)
	require.NoError(t, err)
	require.NoError(t, conn.PublishContentHeader(1, 0, Properties{}))

	req2, err := conn.BasicPublish(1, "orders.topic", "orders.created", false, false)
	require.NoError(t, err)
	require.NoError(t, conn.PublishContentHeader(1, 0, Properties{}))

	req3, err := conn.BasicPublish(1, "orders.topic", "orders.created", false, false)
	require.NoError(t, err)
	require.NoError(t, conn.PublishContentHeader(1, 0, Properties{}))

	// A single, non-multiple ack for tag 1 must resolve only that one
	// confirm, leaving the other two outstanding.
	require.NoError(t, conn.ReceiveMethod(1, BasicAck{DeliveryTag: 1, Multiple: false}))

	assert.True(t, conn.IsFinished(req1))
	assert.False(t, conn.IsFinished(req2))
	assert.False(t, conn.IsFinished(req3))

	ch, _ := conn.Channel(1)
	assert.Len(t, ch.acked, 1)
	assert.Len(t, ch.unacked, 2)
}

func TestBasicDeliverAndGetOkDoNotTouchUnacked(t *testing.T) {
	sink := &recordingSink{}
	conn := NewConnection(sink)

	_, err := conn.ChannelOpen(1)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ChannelOpenOk{}))

	_, err = conn.ConfirmSelect(1, false)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ConfirmSelectOk{}))

	sub := &fakeSubscriber{}
	_, err = conn.BasicConsume(1, "orders", "ctag-1", false, false, false, false, nil, sub)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, BasicConsumeOk{ConsumerTag: "ctag-1"}))

	require.NoError(t, conn.ReceiveMethod(1, BasicDeliver{
		ConsumerTag: "ctag-1", DeliveryTag: 7, Exchange: "orders.topic", RoutingKey: "orders.created",
	}))
	require.NoError(t, conn.ReceiveContentHeader(1, 0, Properties{}))

	_, err = conn.BasicGet(1, "orders", false)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, BasicGetOk{
		DeliveryTag: 8, Exchange: "orders.topic", RoutingKey: "orders.created",
	}))
	require.NoError(t, conn.ReceiveContentHeader(1, 0, Properties{}))

	ch, _ := conn.Channel(1)
	assert.Empty(t, ch.unacked)

	q := ch.Queues["orders"]
	require.NotNil(t, q)
	cons := q.Consumers["ctag-1"]
	require.NotNil(t, cons)
	require.Len(t, cons.prefetched, 1)
	assert.Equal(t, DeliveryTag(7), cons.prefetched[0].DeliveryTag)
}

func TestIssuerRejectedOnceChannelIsErrored(t *testing.T) {
	sink := &recordingSink{}
	conn := NewConnection(sink)

	_, err := conn.ChannelOpen(1)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ChannelOpenOk{}))

	_, err = conn.ExchangeDeclare(1, "orders.topic", "topic", false, true, false, false, false, nil)
	require.NoError(t, err)
	_, err = conn.QueueDeclare(1, "orders", false, true, false, false, false, nil)
	require.NoError(t, err)

	// Out-of-order reply moves the channel to Error and leaves it in the
	// registry rather than removing it.
	err = conn.ReceiveMethod(1, QueueDeclareOk{Queue: "orders"})
	require.Error(t, err)

	ch, chErr := conn.Channel(1)
	require.NoError(t, chErr)
	require.Equal(t, ChannelStatusError, ch.Status)

	// A channel in Error is terminal: further issuer calls must not emit a
	// frame or touch the awaiting FIFO, they must fail outright.
	_, err = conn.QueueDeclare(1, "another", false, true, false, false, false, nil)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = conn.BasicPublish(1, "orders.topic", "orders.created", false, false)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestBasicGetEmpty(t *testing.T) {
	sink := &recordingSink{}
	conn := NewConnection(sink)

	_, err := conn.ChannelOpen(1)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ChannelOpenOk{}))

	reqID, err := conn.BasicGet(1, "orders", false)
	require.NoError(t, err)

	require.NoError(t, conn.ReceiveMethod(1, BasicGetEmpty{}))

	assert.True(t, conn.IsFinished(reqID))
	msg, ok := conn.TakeGetResult(reqID)
	assert.True(t, ok)
	assert.Nil(t, msg)
}

func TestBasicGetOkDeliversMessage(t *testing.T) {
	sink := &recordingSink{}
	conn := NewConnection(sink)

	_, err := conn.ChannelOpen(1)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ChannelOpenOk{}))

	reqID, err := conn.BasicGet(1, "orders", false)
	require.NoError(t, err)

	require.NoError(t, conn.ReceiveMethod(1, BasicGetOk{
		DeliveryTag: 1, Exchange: "orders.topic", RoutingKey: "orders.created", MessageCount: 4,
	}))
	require.NoError(t, conn.ReceiveContentHeader(1, 5, Properties{ContentType: "application/json"}))
	require.NoError(t, conn.ReceiveContentBody(1, []byte("hello")))

	assert.True(t, conn.IsFinished(reqID))
	msg, ok := conn.TakeGetResult(reqID)
	require.True(t, ok)
	require.NotNil(t, msg)
	assert.Equal(t, LongUInt(4), msg.MessageCount)
	assert.Equal(t, []byte("hello"), msg.Delivery.Data)
	assert.Equal(t, "application/json", msg.Delivery.Properties.ContentType)
}

func TestBasicCancelDropsConsumerAndCallsCancelOnce(t *testing.T) {
	sink := &recordingSink{}
	conn := NewConnection(sink)

	_, err := conn.ChannelOpen(1)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ChannelOpenOk{}))

	sub := &fakeSubscriber{}
	_, err = conn.BasicConsume(1, "orders", "ctag-1", false, false, false, false, nil, sub)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, BasicConsumeOk{ConsumerTag: "ctag-1"}))

	ch, _ := conn.Channel(1)
	q, ok := ch.Queues["orders"]
	require.True(t, ok)
	require.Contains(t, q.Consumers, ShortString("ctag-1"))

	_, err = conn.BasicCancel(1, "ctag-1", false)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, BasicCancelOk{ConsumerTag: "ctag-1"}))

	assert.NotContains(t, q.Consumers, ShortString("ctag-1"))
	assert.Equal(t, 1, sub.cancelled)
}

func TestBasicDeliverAssemblesContentAndNotifiesSubscriber(t *testing.T) {
	sink := &recordingSink{}
	conn := NewConnection(sink)

	_, err := conn.ChannelOpen(1)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, ChannelOpenOk{}))

	sub := &fakeSubscriber{}
	_, err = conn.BasicConsume(1, "orders", "ctag-1", false, false, false, false, nil, sub)
	require.NoError(t, err)
	require.NoError(t, conn.ReceiveMethod(1, BasicConsumeOk{ConsumerTag: "ctag-1"}))

	require.NoError(t, conn.ReceiveMethod(1, BasicDeliver{
		ConsumerTag: "ctag-1", DeliveryTag: 7, Exchange: "orders.topic", RoutingKey: "orders.created",
	}))
	require.NoError(t, conn.ReceiveContentHeader(1, 3, Properties{}))
	require.NoError(t, conn.ReceiveContentBody(1, []byte("abc")))

	require.Len(t, sub.delivered, 1)
	assert.Equal(t, DeliveryTag(7), sub.delivered[0].DeliveryTag)
	assert.Equal(t, []byte("abc"), sub.delivered[0].Data)
}

func TestTxMethodsNotImplemented(t *testing.T) {
	sink := &recordingSink{}
	conn := NewConnection(sink)

	_, err := conn.TxSelect(1)
	assert.ErrorIs(t, err, ErrNotImplemented)
	_, err = conn.TxCommit(1)
	assert.ErrorIs(t, err, ErrNotImplemented)
	_, err = conn.TxRollback(1)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestIssuerFailsWhenNotConnected(t *testing.T) {
	sink := &recordingSink{}
	conn := NewConnection(sink)
	conn.Close()

	_, err := conn.ChannelOpen(1)
	assert.ErrorIs(t, err, ErrNotConnected)
}
