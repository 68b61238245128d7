package services

import (
	"errors"

	"github.com/dmitrijs2005/sampleapp/internal/server/models"
)

// collectValidation merges field errors from several checks. The first
// error that is not a models.ValidationErrors is returned as is.
func collectValidation(errs ...error) error {
	var all models.ValidationErrors
	for _, err := range errs {
		if err == nil {
			continue
		}
		var verrs models.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		all = append(all, verrs...)
	}
	if len(all) == 0 {
		return nil
	}
	return all
}

func emailTaken() error {
	return models.ValidationErrors{{Field: "email", Rule: models.RuleTaken}}
}
