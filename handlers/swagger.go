package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>chatter — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document for the HTTP surface. GraphQL operations are described by the schema itself.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "chatter", "version": "v0.1.0" },
  "paths": {
    "/graphql": {
      "post": {
        "summary": "Execute a GraphQL operation (users, user, createUser, updateUser, removeUser)",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"query":{"type":"string"},"variables":{"type":"object"},"operationName":{"type":"string"}}}}}},
        "responses": { "200": { "description": "GraphQL result with data and errors" }, "400": { "description": "malformed request" } }
      }
    },
    "/auth/login": {
      "post": {
        "summary": "Exchange email and password for an access token",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "access token returned" }, "401": { "description": "invalid credentials" } }
      }
    },
    "/api/v1/me": {
      "get": { "summary": "Current user", "responses": { "200": { "description": "user" }, "401": { "description": "missing or invalid token" }, "404": { "description": "user no longer exists" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition format" } } } }
  }
}`
