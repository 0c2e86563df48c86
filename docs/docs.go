// Package docs registra a especificação Swagger da API com o swag.
// Regenere com: swag init -g cmd/api/docs.go -o docs
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
        "/dfe/sync": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["DF-e"],
                "summary": "Sincronizar documentos",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.SyncRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dfe.SyncSummary"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/dfe/state": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["DF-e"],
                "summary": "Estado da sincronização",
                "parameters": [
                    {"type": "string", "name": "branch_id", "in": "query"},
                    {"type": "string", "name": "environment", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SyncStateResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/dfe/documents": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["DF-e"],
                "summary": "Listar documentos",
                "parameters": [
                    {"type": "string", "name": "branch_id", "in": "query"},
                    {"type": "string", "name": "environment", "in": "query"},
                    {"type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 10, "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.DocumentListResponse"}}
                }
            }
        },
        "/dfe/documents/{key}": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["DF-e"],
                "summary": "Obter documento",
                "parameters": [
                    {"type": "string", "name": "key", "in": "path", "required": true},
                    {"type": "string", "name": "branch_id", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.DocumentDetailResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/dfe/documents/{key}/fetch": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["DF-e"],
                "summary": "Consultar chave de acesso",
                "parameters": [
                    {"type": "string", "name": "key", "in": "path", "required": true},
                    {"name": "request", "in": "body", "schema": {"$ref": "#/definitions/dto.FetchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.FetchResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/dfe/documents/{key}/manifestation": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["DF-e"],
                "summary": "Manifestar destinatário",
                "parameters": [
                    {"type": "string", "name": "key", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.ManifestationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ManifestationResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/certificates": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["Certificados"],
                "summary": "Listar certificados",
                "parameters": [{"type": "string", "name": "branch_id", "in": "query"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.CertificateResponse"}}}
                }
            }
        },
        "/certificates/upload": {
            "post": {
                "security": [{"Bearer": []}],
                "consumes": ["multipart/form-data"],
                "tags": ["Certificados"],
                "summary": "Enviar certificado",
                "parameters": [
                    {"type": "string", "name": "branch_id", "in": "formData", "required": true},
                    {"type": "string", "name": "name", "in": "formData", "required": true},
                    {"type": "string", "name": "password", "in": "formData", "required": true},
                    {"type": "file", "name": "certificate", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.CertificateResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "integer"}, "message": {"type": "string"}, "details": {"type": "string"}}
        },
        "dto.SyncRequest": {
            "type": "object",
            "properties": {"branch_id": {"type": "string"}, "tax_id": {"type": "string"}, "state": {"type": "string"}, "environment": {"type": "string"}}
        },
        "dto.FetchRequest": {
            "type": "object",
            "properties": {"branch_id": {"type": "string"}, "environment": {"type": "string"}}
        },
        "dto.ManifestationRequest": {
            "type": "object",
            "required": ["kind"],
            "properties": {"branch_id": {"type": "string"}, "environment": {"type": "string"}, "kind": {"type": "string"}, "justification": {"type": "string"}}
        },
        "dfe.SyncSummary": {
            "type": "object",
            "properties": {
                "branch_id": {"type": "string"}, "environment": {"type": "string"}, "start_nsu": {"type": "string"},
                "last_nsu": {"type": "string"}, "max_nsu": {"type": "string"}, "pages": {"type": "integer"},
                "documents": {"type": "integer"}, "status": {"type": "string"}, "message": {"type": "string"},
                "in_sync": {"type": "boolean"}, "skipped": {"type": "boolean"}, "blocked_until": {"type": "string"}
            }
        },
        "dto.SyncStateResponse": {
            "type": "object",
            "properties": {
                "branch_id": {"type": "string"}, "environment": {"type": "string"}, "last_nsu": {"type": "string"},
                "max_nsu": {"type": "string"}, "last_status": {"type": "string"}, "last_message": {"type": "string"},
                "blocked_until": {"type": "string"}, "updated_at": {"type": "string"}
            }
        },
        "dto.DocumentResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "nsu": {"type": "string"}, "schema": {"type": "string"}, "kind": {"type": "string"},
                "access_key": {"type": "string"}, "issuer_tax_id": {"type": "string"}, "issuer_name": {"type": "string"},
                "total_value": {"type": "string"}, "issued_at": {"type": "string"}, "event_type": {"type": "string"},
                "received_at": {"type": "string"}, "xml": {"type": "string"}
            }
        },
        "dto.DocumentListResponse": {
            "type": "object",
            "properties": {
                "documents": {"type": "array", "items": {"$ref": "#/definitions/dto.DocumentResponse"}},
                "total": {"type": "integer"}, "page": {"type": "integer"}, "page_size": {"type": "integer"}, "total_pages": {"type": "integer"}
            }
        },
        "dto.ManifestationResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "access_key": {"type": "string"}, "kind": {"type": "string"}, "description": {"type": "string"},
                "justification": {"type": "string"}, "status": {"type": "string"}, "message": {"type": "string"},
                "event_status": {"type": "string"}, "protocol": {"type": "string"}, "registered": {"type": "boolean"}, "created_at": {"type": "string"}
            }
        },
        "dto.DocumentDetailResponse": {
            "type": "object",
            "properties": {
                "document": {"$ref": "#/definitions/dto.DocumentResponse"},
                "manifestations": {"type": "array", "items": {"$ref": "#/definitions/dto.ManifestationResponse"}}
            }
        },
        "dto.FetchResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"}, "message": {"type": "string"},
                "documents": {"type": "array", "items": {"$ref": "#/definitions/dto.DocumentResponse"}}
            }
        },
        "dto.CertificateResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "branch_id": {"type": "string"}, "name": {"type": "string"}, "subject": {"type": "string"},
                "expiration_date": {"type": "string"}, "is_active": {"type": "boolean"}, "is_expired": {"type": "boolean"},
                "created_at": {"type": "string"}, "updated_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "NF-e DF-e API",
	Description:      "Distribuição de DF-e e manifestação do destinatário da NF-e",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
