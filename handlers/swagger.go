package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the auth service.
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
    <title>multimart-auth Swagger</title>
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

// Minimal OpenAPI document describing the auth flow and profile endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "multimart-auth", "version": "v0.1.0" },
  "paths": {
    "/auth": {
      "get": {
        "summary": "Enter the auth flow",
        "parameters": [
          { "name": "mode", "in": "query", "schema": { "type": "string", "enum": ["signup", "complete-profile"] } },
          { "name": "complete-profile", "in": "query", "schema": { "type": "string" } },
          { "name": "redirect", "in": "query", "schema": { "type": "string" } }
        ],
        "responses": { "200": { "description": "flow view" }, "303": { "description": "signed in with a complete profile" } }
      }
    },
    "/auth/credentials": {
      "post": {
        "summary": "Sign up or sign in, depending on the current mode",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"},"confirm_password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "flow view" }, "401": { "description": "invalid credentials or unverified email" }, "409": { "description": "submission pending" }, "422": { "description": "local validation failed" }, "502": { "description": "provider failure" } }
      }
    },
    "/auth/mode": { "post": { "summary": "Switch between sign-in and sign-up", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"mode":{"type":"string","enum":["signin","signup"]}}}}}}, "responses": { "200": { "description": "flow view" } } } },
    "/auth/verify/back": { "post": { "summary": "Leave the verification wait", "responses": { "200": { "description": "flow view" } } } },
    "/auth/profile": {
      "post": {
        "summary": "Complete the profile",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"full_name":{"type":"string"},"roll_number":{"type":"string"},"branch":{"type":"string"},"year":{"type":"string"},"hostel":{"type":"string"},"bio":{"type":"string"},"phone":{"type":"string"}}}}}},
        "responses": { "200": { "description": "flow view" }, "422": { "description": "required field missing" } }
      }
    },
    "/auth/signout": { "post": { "summary": "Sign out", "responses": { "200": { "description": "signed out, possibly with a warning" } } } },
    "/auth/session": { "get": { "summary": "Current session snapshot", "responses": { "200": { "description": "snapshot" } } } },
    "/auth/events": { "get": { "summary": "Server-sent flow views", "responses": { "200": { "description": "text/event-stream" } } } },
    "/auth/confirm": { "get": { "summary": "Verification link target", "parameters": [ { "name": "token", "in": "query", "required": true, "schema": { "type": "string" } } ], "responses": { "200": { "description": "confirmed" }, "400": { "description": "invalid or expired link" } } } },
    "/auth/options": { "get": { "summary": "Branch, year and hostel options", "responses": { "200": { "description": "option lists" } } } },
    "/api/v1/me": { "get": { "summary": "Signed-in identity and profile", "responses": { "200": { "description": "identity" }, "303": { "description": "not signed in" } } } },
    "/api/v1/profile": {
      "get": { "summary": "Own profile", "responses": { "200": { "description": "profile" }, "404": { "description": "no profile yet" } } },
      "patch": { "summary": "Update own profile fields", "responses": { "200": { "description": "profile" } } }
    },
    "/api/v1/profile/avatar": {
      "put": { "summary": "Upload avatar (multipart field avatar)", "responses": { "200": { "description": "stored" } } },
      "get": { "summary": "Presigned avatar URL", "responses": { "200": { "description": "url" }, "404": { "description": "no avatar" } } }
    },
    "/admin/profiles/{identity_id}": {
      "get": { "summary": "Read a profile (admin)", "responses": { "200": { "description": "profile" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Set seller_verified / is_active (admin)", "responses": { "200": { "description": "profile" } } }
    },
    "/admin/tokens/revoke": { "post": { "summary": "Blacklist a bearer token (admin)", "responses": { "200": { "description": "revoked" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
