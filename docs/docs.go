// Package docs registers the OpenAPI document served by the Swagger UI.
// Regenerate with: swag init -g cmd/adminview/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/admin": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "List admin pages",
                "operationId": "listResources",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/{resource}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Current page of a list",
                "operationId": "listResource",
                "parameters": [
                    {"type": "string", "name": "resource", "in": "path", "required": true},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"},
                    {"type": "boolean", "name": "refresh", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown resource"}}
            }
        },
        "/admin/{resource}/events": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Apply a view event",
                "operationId": "dispatchEvent",
                "parameters": [{"type": "string", "name": "resource", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid event"}}
            }
        },
        "/admin/{resource}/export.csv": {
            "get": {
                "produces": ["text/csv"],
                "tags": ["Admin"],
                "summary": "Export the filtered collection",
                "operationId": "exportResource",
                "parameters": [
                    {"type": "string", "name": "resource", "in": "path", "required": true},
                    {"type": "boolean", "name": "archive", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/{resource}/validate": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["Admin"],
                "summary": "Validate a form",
                "operationId": "validateForm",
                "parameters": [{"type": "string", "name": "resource", "in": "path", "required": true}],
                "responses": {"204": {"description": "Valid"}, "422": {"description": "Field errors"}}
            }
        },
        "/admin/{resource}/gate": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Current confirmation",
                "operationId": "pendingGate",
                "parameters": [{"type": "string", "name": "resource", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Nothing pending"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Open a confirmation",
                "operationId": "openGate",
                "parameters": [{"type": "string", "name": "resource", "in": "path", "required": true}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/admin/{resource}/gate/confirm": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Run the confirmed action",
                "operationId": "confirmGate",
                "parameters": [
                    {"type": "string", "name": "resource", "in": "path", "required": true},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Stale confirmation"}}
            }
        },
        "/admin/{resource}/gate/close": {
            "post": {
                "tags": ["Admin"],
                "summary": "Discard the confirmation",
                "operationId": "closeGate",
                "parameters": [{"type": "string", "name": "resource", "in": "path", "required": true}],
                "responses": {"204": {"description": "Closed"}}
            }
        },
        "/storefront/cart/items": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Storefront"],
                "summary": "Add a product to the cart",
                "operationId": "addCartItem",
                "responses": {"201": {"description": "Added"}, "202": {"description": "Questionnaire required"}}
            }
        },
        "/storefront/qualification": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Storefront"],
                "summary": "Submit questionnaire answers",
                "operationId": "submitQualification",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Nothing pending"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Backoffice Admin API",
	Description:      "List pages, confirmations and exports for the storefront backoffice.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
