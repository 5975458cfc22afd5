package main

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/meikuraledutech/procflow"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("due_date", func(fl validator.FieldLevel) bool {
		_, ok := procflow.ParseDue(fl.Field().String(), nil)
		return ok
	})

	// Task ids are optional, but the ones given must not repeat.
	v.RegisterValidation("unique_task_ids", func(fl validator.FieldLevel) bool {
		tasks, ok := fl.Field().Interface().([]taskInput)
		if !ok {
			return false
		}
		seen := make(map[procflow.TaskID]struct{}, len(tasks))
		for _, t := range tasks {
			if t.ID == "" {
				continue
			}
			if _, dup := seen[t.ID]; dup {
				return false
			}
			seen[t.ID] = struct{}{}
		}
		return true
	})
	return v
}

// validationMessage flattens validator errors into one line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
