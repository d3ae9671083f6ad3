package order

// Kind groups checkout errors by how a caller should treat them.
type Kind int

const (
	// KindInvalid is a rejected request.
	KindInvalid Kind = iota
	// KindNotFound is a reference to a missing order or product.
	KindNotFound
	// KindInvariant means stored state broke an invariant that checkout
	// relies on.
	KindInvariant
)

// Error contexts.
const (
	ContextOrder      = "order"
	ContextOrders     = "orders"
	ContextProducts   = "products"
	ContextCreditCard = "credit-card"
)

// Error codes.
const (
	CodeJSONNotValid        = "json-not-valid"
	CodeMissingFields       = "missing-fields"
	CodeProductDoesNotExist = "product-does-not-exist"
	CodeOutOfInventory      = "out-of-inventory"
	CodeInvalidQuantity     = "invalid-quantity"
	CodeInvalidFields       = "invalid-fields"
	CodeOrderDoesNotExist   = "order-does-not-exist"
	CodeOrderNotFound       = "order-not-found"
	CodeAlreadyPaid         = "already-paid"
	CodeIncorrectNumber     = "incorrect-number"
	CodeCardDeclined        = "card-declined"
	CodeUnknownError        = "unknown-error"
	CodeGatewayTimeout      = "gateway-timeout"
	CodeGatewayUnavailable  = "gateway-unavailable"
	CodeRateLimited         = "rate-limited"
)

// Error is a checkout failure rendered to clients as
// {"errors": {Context: {"code": Code, "name": Message}}}.
type Error struct {
	Context string
	Code    string
	Message string
	Kind    Kind
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Invalid returns a KindInvalid error.
func Invalid(context, code, message string) *Error {
	return &Error{Context: context, Code: code, Message: message, Kind: KindInvalid}
}

// NotFound returns a KindNotFound error.
func NotFound(context, code, message string) *Error {
	return &Error{Context: context, Code: code, Message: message, Kind: KindNotFound}
}

func invariant(message string, err error) *Error {
	return &Error{
		Context: ContextOrder,
		Code:    CodeUnknownError,
		Message: message,
		Kind:    KindInvariant,
		Err:     err,
	}
}
