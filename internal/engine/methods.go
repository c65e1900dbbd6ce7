package engine

// Method is the marker interface implemented by every decoded/encoded AMQP
// 0-9-1 method value the engine exchanges with the external frame codec.
// The codec itself — turning bytes into these values and back — lives
// outside this package; the engine only ever sees and produces Method
// values.
type Method interface {
	amqpMethod()
}

type baseMethod struct{}

func (baseMethod) amqpMethod() {}

// --- channel class ---

type ChannelOpen struct {
	baseMethod
	OutOfBand ShortString
}

type ChannelOpenOk struct{ baseMethod }

type ChannelFlow struct {
	baseMethod
	Active Boolean
}

type ChannelFlowOk struct {
	baseMethod
	Active Boolean
}

type ChannelClose struct {
	baseMethod
	ReplyCode ShortUInt
	ReplyText ShortString
	ClassID   ShortUInt
	MethodID  ShortUInt
}

type ChannelCloseOk struct{ baseMethod }

// --- access class ---

type AccessRequest struct {
	baseMethod
	Realm     ShortString
	Exclusive Boolean
	Passive   Boolean
	Active    Boolean
	Write     Boolean
	Read      Boolean
}

type AccessRequestOk struct {
	baseMethod
	Ticket ShortUInt
}

// --- exchange class ---

type ExchangeDeclare struct {
	baseMethod
	Ticket     ShortUInt
	Exchange   ShortString
	Type       ShortString
	Passive    Boolean
	Durable    Boolean
	AutoDelete Boolean
	Internal   Boolean
	NoWait     Boolean
	Arguments  FieldTable
}

type ExchangeDeclareOk struct{ baseMethod }

type ExchangeDelete struct {
	baseMethod
	Ticket   ShortUInt
	Exchange ShortString
	IfUnused Boolean
	NoWait   Boolean
}

type ExchangeDeleteOk struct{ baseMethod }

type ExchangeBind struct {
	baseMethod
	Ticket      ShortUInt
	Destination ShortString
	Source      ShortString
	RoutingKey  ShortString
	NoWait      Boolean
	Arguments   FieldTable
}

type ExchangeBindOk struct{ baseMethod }

type ExchangeUnbind struct {
	baseMethod
	Ticket      ShortUInt
	Destination ShortString
	Source      ShortString
	RoutingKey  ShortString
	NoWait      Boolean
	Arguments   FieldTable
}

type ExchangeUnbindOk struct{ baseMethod }

// --- queue class ---

type QueueDeclare struct {
	baseMethod
	Ticket     ShortUInt
	Queue      ShortString
	Passive    Boolean
	Durable    Boolean
	Exclusive  Boolean
	AutoDelete Boolean
	NoWait     Boolean
	Arguments  FieldTable
}

type QueueDeclareOk struct {
	baseMethod
	Queue         ShortString
	MessageCount  LongUInt
	ConsumerCount LongUInt
}

type QueueBind struct {
	baseMethod
	Ticket     ShortUInt
	Queue      ShortString
	Exchange   ShortString
	RoutingKey ShortString
	NoWait     Boolean
	Arguments  FieldTable
}

type QueueBindOk struct{ baseMethod }

type QueuePurge struct {
	baseMethod
	Ticket ShortUInt
	Queue  ShortString
	NoWait Boolean
}

type QueuePurgeOk struct {
	baseMethod
	MessageCount LongUInt
}

type QueueDelete struct {
	baseMethod
	Ticket   ShortUInt
	Queue    ShortString
	IfUnused Boolean
	IfEmpty  Boolean
	NoWait   Boolean
}

type QueueDeleteOk struct {
	baseMethod
	MessageCount LongUInt
}

type QueueUnbind struct {
	baseMethod
	Ticket     ShortUInt
	Queue      ShortString
	Exchange   ShortString
	RoutingKey ShortString
	Arguments  FieldTable
}

type QueueUnbindOk struct{ baseMethod }

// --- basic class ---

type BasicQos struct {
	baseMethod
	PrefetchSize  LongUInt
	PrefetchCount ShortUInt
	Global        Boolean
}

type BasicQosOk struct{ baseMethod }

type BasicConsume struct {
	baseMethod
	Ticket      ShortUInt
	Queue       ShortString
	ConsumerTag ShortString
	NoLocal     Boolean
	NoAck       Boolean
	Exclusive   Boolean
	NoWait      Boolean
	Arguments   FieldTable
}

type BasicConsumeOk struct {
	baseMethod
	ConsumerTag ShortString
}

type BasicCancel struct {
	baseMethod
	ConsumerTag ShortString
	NoWait      Boolean
}

type BasicCancelOk struct {
	baseMethod
	ConsumerTag ShortString
}

type BasicPublish struct {
	baseMethod
	Ticket     ShortUInt
	Exchange   ShortString
	RoutingKey ShortString
	Mandatory  Boolean
	Immediate  Boolean
}

type BasicDeliver struct {
	baseMethod
	ConsumerTag ShortString
	DeliveryTag DeliveryTag
	Redelivered Boolean
	Exchange    ShortString
	RoutingKey  ShortString
}

type BasicGet struct {
	baseMethod
	Ticket ShortUInt
	Queue  ShortString
	NoAck  Boolean
}

type BasicGetOk struct {
	baseMethod
	DeliveryTag  DeliveryTag
	Redelivered  Boolean
	Exchange     ShortString
	RoutingKey   ShortString
	MessageCount LongUInt
}

type BasicGetEmpty struct{ baseMethod }

type BasicAck struct {
	baseMethod
	DeliveryTag DeliveryTag
	Multiple    Boolean
}

type BasicReject struct {
	baseMethod
	DeliveryTag DeliveryTag
	Requeue     Boolean
}

type BasicRecoverAsync struct {
	baseMethod
	Requeue Boolean
}

type BasicRecover struct {
	baseMethod
	Requeue Boolean
}

type BasicRecoverOk struct{ baseMethod }

type BasicNack struct {
	baseMethod
	DeliveryTag DeliveryTag
	Multiple    Boolean
	Requeue     Boolean
}

// --- confirm class (RabbitMQ extension) ---

type ConfirmSelect struct {
	baseMethod
	NoWait Boolean
}

type ConfirmSelectOk struct{ baseMethod }

// --- tx class (declared, unimplemented) ---

type TxSelect struct{ baseMethod }
type TxSelectOk struct{ baseMethod }
type TxCommit struct{ baseMethod }
type TxCommitOk struct{ baseMethod }
type TxRollback struct{ baseMethod }
type TxRollbackOk struct{ baseMethod }
