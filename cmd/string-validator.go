package main

import "go.uber.org/zap"

// collects values while validating configuration, remembering whether any were missing

type stringValidator struct {
	logger  *zap.SugaredLogger
	values  []string
	invalid bool
	prefix  string
	postfix string
}

func newStringValidator(logger *zap.SugaredLogger) *stringValidator {
	return &stringValidator{logger: logger}
}

func (v *stringValidator) addValue(value string) {
	if value != "" {
		v.values = append(v.values, value)
	}
}

func (v *stringValidator) setPrefix(prefix string) {
	v.prefix = prefix
}

func (v *stringValidator) setPostfix(postfix string) {
	v.postfix = postfix
}

func (v *stringValidator) requireValue(value string, label string) {
	if value == "" {
		v.fail("%smissing %s%s", v.prefix, label, v.postfix)
		return
	}

	v.addValue(value)
}

func (v *stringValidator) requireCondition(ok bool, label string) {
	if ok == false {
		v.fail("%s%s%s", v.prefix, label, v.postfix)
	}
}

func (v *stringValidator) fail(format string, args ...interface{}) {
	if v.logger != nil {
		v.logger.Errorf("[VALIDATE] "+format, args...)
	}

	v.invalid = true
}

func (v *stringValidator) Values() []string {
	return uniqueStrings(v.values)
}

func (v *stringValidator) Invalid() bool {
	return v.invalid
}
