package eventmodels

import "fmt"

var ErrNoTradeID = fmt.Errorf("trade id not set")
var ErrNoTimestamp = fmt.Errorf("timestamp not set")
var ErrInvalidPrice = fmt.Errorf("price must be positive")
var ErrUnknownAdviceAction = fmt.Errorf("unknown advice action")
var ErrInvalidAdviceWeight = fmt.Errorf("advice weight must be between 0 and 1")
var ErrNonMonotonicAdvice = fmt.Errorf("advice timestamp is not monotonic")
var ErrRoundTripNotClosed = fmt.Errorf("roundtrip exit must be after entry")
