package pipeline

import "fmt"

var ErrUnknownMode = fmt.Errorf("unknown pipeline mode")
var ErrUnknownPlugin = fmt.Errorf("unknown plugin")
var ErrDuplicatePlugin = fmt.Errorf("plugin already registered")
var ErrMissingDependency = fmt.Errorf("plugin depends on a plugin that is not enabled")
var ErrCyclicDependency = fmt.Errorf("plugin dependency graph has a cycle")
var ErrCandleOutOfOrder = fmt.Errorf("candle timestamps must be strictly increasing")
