package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CIMAS API",
        "description": "Cybercrime incident management and support backend",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Registration, login and token lifecycle"},
        {"name": "Users", "description": "Profiles and account administration"},
        {"name": "Incidents", "description": "Incident reports"},
        {"name": "Cases", "description": "Case assignment and investigation workflow"},
        {"name": "Evidence", "description": "Evidence attachments"},
        {"name": "Chat", "description": "Direct messages and broadcasts"},
        {"name": "Awareness", "description": "Public awareness articles"},
        {"name": "Analytics", "description": "Role scoped dashboards"},
        {"name": "Logs", "description": "Activity audit trail"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register a new account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/AuthResponse"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AuthResponse"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AuthResponse"}},
                    "401": {"description": "Invalid or revoked token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke the current refresh token",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/users/me": {
            "get": {
                "tags": ["Users"],
                "summary": "Current user profile",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Users"],
                "summary": "Update own profile",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users (admin)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/incidents": {
            "get": {
                "tags": ["Incidents"],
                "summary": "List incidents visible to the caller",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Incidents"],
                "summary": "Report an incident",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/incidents/{id}": {
            "get": {
                "tags": ["Incidents"],
                "summary": "Incident detail",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Incidents"],
                "summary": "Update an incident",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Incidents"],
                "summary": "Delete an incident",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/incidents/{id}/evidence": {
            "get": {
                "tags": ["Evidence"],
                "summary": "List evidence for an incident",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Evidence"],
                "summary": "Attach evidence (multipart upload or JSON reference)",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"201": {"description": "Created"}, "413": {"description": "File too large"}}
            }
        },
        "/cases/{id}/assign/{userId}": {
            "post": {
                "tags": ["Cases"],
                "summary": "Assign a case to an investigator",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true},
                    {"name": "userId", "in": "path", "type": "integer", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Incident resolved or already assigned"}
                }
            }
        },
        "/cases/{id}/reassign/{userId}": {
            "post": {
                "tags": ["Cases"],
                "summary": "Reassign a case to a different investigator",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true},
                    {"name": "userId", "in": "path", "type": "integer", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/cases/assigned": {
            "get": {
                "tags": ["Cases"],
                "summary": "Cases assigned to the caller",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "investigator_id", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/cases/unassigned": {
            "get": {
                "tags": ["Cases"],
                "summary": "Open cases without an assignee",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/cases/{id}/report": {
            "get": {
                "tags": ["Cases"],
                "summary": "Download a PDF case report",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "produces": ["application/pdf"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/chat/messages": {
            "get": {
                "tags": ["Chat"],
                "summary": "Inbox, or a conversation when chat_with is given",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "chat_with", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Chat"],
                "summary": "Send a direct message or broadcast",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}, "403": {"description": "Messaging not permitted"}}
            }
        },
        "/chat/available-users": {
            "get": {
                "tags": ["Chat"],
                "summary": "Contacts the caller may message",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/chat/admin-panel-broadcasts": {
            "get": {
                "tags": ["Chat"],
                "summary": "Broadcasts visible to the caller's role",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/awareness/resources": {
            "get": {
                "tags": ["Awareness"],
                "summary": "List awareness articles",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Awareness"],
                "summary": "Author an article",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/awareness/flairs": {
            "get": {
                "tags": ["Awareness"],
                "summary": "List article flairs",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/analytics/summary": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Role scoped dashboard rollup",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/logs": {
            "get": {
                "tags": ["Logs"],
                "summary": "Activity logs visible to the caller",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["email", "password", "first_name", "last_name"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "role": {"type": "string", "enum": ["victim", "investigator"]}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "AuthResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"},
                "user": {"type": "object"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
