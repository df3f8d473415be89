//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// MountSwagger serves the Swagger UI at /swagger/ when built with
// -tags=swagger.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler())
}

const docTemplate = `{
  "schemes": ["http"],
  "swagger": "2.0",
  "info": {
    "title": "{{.Title}}",
    "description": "{{escape .Description}}",
    "version": "{{.Version}}"
  },
  "host": "{{.Host}}",
  "basePath": "{{.BasePath}}",
  "paths": {
    "/models": {"get": {"summary": "List registered models"}},
    "/models/{name}": {"get": {"summary": "Model-status snapshot"}},
    "/models/{name}/invoke": {"post": {"summary": "Submit an inference job"}}
  }
}`

var swaggerSpec = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Title:            "batchd API",
	Description:      "HTTP API for model job admission, batching and status.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(swaggerSpec.InstanceName(), swaggerSpec)
}
