package config

import "fmt"

var ErrInvalidConfig = fmt.Errorf("invalid config")
