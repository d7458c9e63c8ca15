// Package validation enforces the OpenAPI document on inbound requests.
package validation

import (
	"errors"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
)

// New builds a Gin middleware that validates inbound requests against the
// provided OpenAPI document. Routes the document does not describe (and CORS
// preflights) are passed through.
func New(spec []byte) (gin.HandlerFunc, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, err
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		route, pathParams, err := router.FindRoute(c.Request)
		if err != nil {
			c.Next()
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}
		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			c.Header("X-Error-Kind", "invalid_input")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message(err), "kind": "invalid_input"})
			return
		}
		c.Next()
	}, nil
}

// message keeps the parameter name and reason, dropping the schema dump
// kin-openapi appends to its errors.
func message(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) && reqErr.Parameter != nil {
		reason := reqErr.Reason
		var schemaErr *openapi3.SchemaError
		if reason == "" && errors.As(reqErr.Err, &schemaErr) {
			reason = schemaErr.Reason
		}
		if reason == "" && reqErr.Err != nil {
			reason = reqErr.Err.Error()
		}
		return "invalid " + reqErr.Parameter.Name + ": " + reason
	}
	return err.Error()
}
