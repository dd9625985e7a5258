package model

import "fmt"

// ValidationError 用户输入不合法，在访问数据库之前返回
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid --%s %q: %s", e.Field, fmt.Sprint(e.Value), e.Reason)
}
