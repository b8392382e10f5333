package qsim

import "fmt"

func fmtScenario(tmpl string, args ...any) string {
	return fmt.Sprintf(tmpl, args...)
}
