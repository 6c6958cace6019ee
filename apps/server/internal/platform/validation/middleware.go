// Package validation checks inbound API requests against the OpenAPI document
// embedded in schemas before they reach the repo handlers.
package validation

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
)

// Validator matches requests to OpenAPI operations and validates their
// parameters and bodies.
type Validator struct {
	router  routers.Router
	options *openapi3filter.Options
}

// NewValidator loads and validates the OpenAPI document.
func NewValidator(doc []byte) (*Validator, error) {
	loader := openapi3.NewLoader()
	api, err := loader.LoadFromData(doc)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := api.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	router, err := gorillamux.NewRouter(api)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return &Validator{
		router: router,
		options: &openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}, nil
}

// New is NewValidator followed by Middleware.
func New(doc []byte) (gin.HandlerFunc, error) {
	v, err := NewValidator(doc)
	if err != nil {
		return nil, err
	}
	return v.Middleware(), nil
}

// Validate returns the operation id the request matched and the validation
// error, if any. ok is false for requests no operation describes.
func (v *Validator) Validate(r *http.Request) (operationID string, ok bool, err error) {
	route, params, err := v.router.FindRoute(r)
	if err != nil {
		return "", false, nil
	}
	err = openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: params,
		Route:      route,
		Options:    v.options,
	})
	return route.Operation.OperationID, true, err
}

// Middleware rejects invalid requests with 400 {message, operation, error}.
// Requests for routes absent from the document pass through.
func (v *Validator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		op, ok, err := v.Validate(c.Request)
		if !ok || err == nil {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message":   "invalid request",
			"operation": op,
			"error":     reason(err),
		})
	}
}

// reason trims kin-openapi's multi-line error to the part a client can act on.
func reason(err error) string {
	var re *openapi3filter.RequestError
	if errors.As(err, &re) {
		if re.Parameter != nil {
			return fmt.Sprintf("parameter %q in %s: %s", re.Parameter.Name, re.Parameter.In, cause(re))
		}
		if re.RequestBody != nil {
			return "request body: " + cause(re)
		}
	}
	return err.Error()
}

func cause(re *openapi3filter.RequestError) string {
	var se *openapi3.SchemaError
	if errors.As(re.Err, &se) {
		if p := se.JSONPointer(); len(p) > 0 {
			return fmt.Sprintf("%s: %s", p[0], se.Reason)
		}
		return se.Reason
	}
	if re.Err != nil {
		return re.Err.Error()
	}
	return re.Reason
}
