package wine

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/vinoscore/pkg/errors"
)

// ParseForm reads one value per feature from form fields named by
// Feature.Slug and validates the result. A missing field is an error; no
// default is substituted.
func ParseForm(form url.Values) (Vector, error) {
	var (
		v    Vector
		errs errors.ValidationErrors
	)
	for i, f := range features {
		raw := strings.TrimSpace(form.Get(f.Slug()))
		if raw == "" {
			errs = append(errs, &errors.ValidationError{ParamName: f.Column, Reason: "is required", Value: raw})
			continue
		}
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, &errors.ValidationError{ParamName: f.Column, Reason: "must be a number", Value: raw})
			continue
		}
		if e := f.check(val); e != nil {
			errs = append(errs, e)
			continue
		}
		v[i] = val
	}
	if len(errs) > 0 {
		return v, errs
	}
	return v, nil
}

// FormValues renders v as form fields, the inverse of ParseForm.
func FormValues(v Vector) url.Values {
	form := url.Values{}
	for i, f := range features {
		form.Set(f.Slug(), f.FormatValue(v[i]))
	}
	return form
}
