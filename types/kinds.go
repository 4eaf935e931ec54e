package types

// Kind names the category of an extracted event.
type Kind string

// Built-in event kinds. The set is open: rule files may declare more.
const (
	KindOOM                    Kind = "OOM"
	KindTxSentry               Kind = "TxSentry"
	KindReferenceDataThreshold Kind = "ReferenceDataThreshold"
	KindExpensiveRules         Kind = "ExpensiveRules"
	KindTooManyOpenFiles       Kind = "TooManyOpenFiles"
	KindCacheOverflow          Kind = "CacheOverflow"
	KindDroppedReceive         Kind = "DroppedReceive"
	KindConnectLocalhost       Kind = "ConnectLocalhost"
)

// BuiltinKinds lists the built-in kinds in report order.
var BuiltinKinds = []Kind{
	KindOOM,
	KindTxSentry,
	KindReferenceDataThreshold,
	KindExpensiveRules,
	KindTooManyOpenFiles,
	KindCacheOverflow,
	KindDroppedReceive,
	KindConnectLocalhost,
}

func (k Kind) String() string { return string(k) }

// Field keys shared by several kinds.
const (
	FieldDate      = "date"
	FieldService   = "service"
	FieldQuery     = "query"
	FieldThreadKey = "thread_key"
	FieldMessage   = "message"
	FieldTimeDate  = "time_date"
	FieldID        = "id"
)
