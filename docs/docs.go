// Package docs registers the OpenAPI description served under /swagger.
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
        "/login": {
            "post": {
                "description": "Checks the throttle, the reCAPTCHA token and the password, then sends a one-time code",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Sign in, first factor",
                "parameters": [
                    {"description": "Credentials", "name": "login", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/2fa": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Second-factor status",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Sign in, second factor",
                "parameters": [
                    {"description": "One-time code", "name": "code", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.VerifyOTPRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/2fa/resend": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Resend the one-time code",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/logout": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Sign out",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/register": {
            "post": {
                "description": "Elevated roles can only be assigned by a signed-in superadmin",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Register an identity",
                "parameters": [
                    {"description": "New identity", "name": "user", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/welcome": {"get": {"produces": ["application/json"], "tags": ["Users"], "summary": "Current principal", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/dashboard": {"get": {"produces": ["application/json"], "tags": ["Users"], "summary": "Current principal", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}}}},
        "/admin": {"get": {"produces": ["application/json"], "tags": ["Users"], "summary": "Current principal", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}}}},
        "/superadmin": {"get": {"produces": ["application/json"], "tags": ["Users"], "summary": "Current principal", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}}}},
        "/password/forgot": {
            "post": {
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Request a password reset code",
                "parameters": [
                    {"description": "Identity", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ForgotPasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/password/reset": {
            "post": {
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Set a new password with a reset code",
                "parameters": [
                    {"description": "Code and new password", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ResetPasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/api/users": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "List users",
                "parameters": [
                    {"type": "integer", "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Identity"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Create a user",
                "parameters": [
                    {"description": "User", "name": "user", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.UserInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Identity"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/api/users/{id}": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Update a user",
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "id", "in": "path", "required": true},
                    {"description": "User", "name": "user", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.UserInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Identity"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Delete a user",
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/integrations/telegram/link": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Integrations"],
                "summary": "Request a Telegram link code",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"},
                "field": {"type": "string"},
                "redirect": {"type": "string"}
            }
        },
        "models.LoginRequest": {
            "type": "object",
            "properties": {
                "identification": {"type": "string"},
                "password": {"type": "string"},
                "bot_token": {"type": "string"}
            }
        },
        "models.VerifyOTPRequest": {
            "type": "object",
            "required": ["code"],
            "properties": {"code": {"type": "string"}}
        },
        "models.RegisterRequest": {
            "type": "object",
            "required": ["full_name", "identification", "password", "confirm_password", "email"],
            "properties": {
                "full_name": {"type": "string"},
                "identification": {"type": "string"},
                "password": {"type": "string", "minLength": 6},
                "confirm_password": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string", "enum": ["normal", "admin", "superadmin"]},
                "bot_token": {"type": "string"}
            }
        },
        "models.ForgotPasswordRequest": {
            "type": "object",
            "required": ["identification"],
            "properties": {
                "identification": {"type": "string"},
                "bot_token": {"type": "string"}
            }
        },
        "models.ResetPasswordRequest": {
            "type": "object",
            "required": ["identification", "code", "password", "confirm_password"],
            "properties": {
                "identification": {"type": "string"},
                "code": {"type": "string"},
                "password": {"type": "string", "minLength": 6},
                "confirm_password": {"type": "string"}
            }
        },
        "models.UserInput": {
            "type": "object",
            "required": ["full_name", "identification", "email"],
            "properties": {
                "full_name": {"type": "string"},
                "identification": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "active": {"type": "boolean"},
                "role": {"type": "string", "enum": ["normal", "admin", "superadmin"]}
            }
        },
        "models.Identity": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "identification": {"type": "string"},
                "full_name": {"type": "string"},
                "email": {"type": "string"},
                "active": {"type": "boolean"},
                "role": {"type": "string"},
                "created_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "CESDE portal API",
	Description:      "Sign-in with password, reCAPTCHA and an emailed one-time code.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
