// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with `mage swagger`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {"post": {"tags": ["Auth"], "summary": "Register new user", "responses": {"201": {"description": "Created"}}}},
        "/auth/login": {"post": {"tags": ["Auth"], "summary": "Sign in", "responses": {"200": {"description": "OK"}}}},
        "/users/me": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["User"], "summary": "Get current user profile", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["User"], "summary": "Update user profile", "responses": {"200": {"description": "OK"}}}
        },
        "/plans": {"get": {"tags": ["Plan"], "summary": "List active plans", "responses": {"200": {"description": "OK"}}}},
        "/checkout-session": {"post": {"tags": ["Subscription"], "summary": "Create checkout session", "responses": {"200": {"description": "OK"}}}},
        "/payment-success": {"post": {"tags": ["Subscription"], "summary": "Verify payment and activate subscription", "responses": {"200": {"description": "OK"}}}},
        "/subscription": {"get": {"security": [{"BearerAuth": []}], "tags": ["Subscription"], "summary": "Current subscription", "responses": {"200": {"description": "OK"}}}},
        "/videos": {"get": {"security": [{"BearerAuth": []}], "tags": ["Video"], "summary": "List videos", "responses": {"200": {"description": "OK"}, "402": {"description": "Subscription required"}}}},
        "/upload": {"post": {"security": [{"BearerAuth": []}], "tags": ["Video"], "summary": "Upload video", "responses": {"201": {"description": "Created"}}}},
        "/webhooks/stripe": {"post": {"tags": ["Subscription"], "summary": "Stripe webhook", "responses": {"200": {"description": "OK"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Bearer token authentication. Format: \"Bearer {token}\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:5000",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "SFlix Server API",
	Description:      "Video subscription backend: plans, checkout, payment verification and the video catalogue.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
