package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Results API",
        "description": "Score entry, class ranking, statistics and broadsheet exports",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Results", "description": "Score entry and maintenance"},
        {"name": "Reports", "description": "Ranked class reports and exports"},
        {"name": "Observability", "description": "Health and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Observability"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Observability"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Result store unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "JSON summary of service counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/results": {
            "get": {
                "tags": ["Results"],
                "summary": "List class score records",
                "parameters": [
                    {"name": "class", "in": "query", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "required": true, "type": "string", "enum": ["1st Term", "2nd Term", "3rd Term"]},
                    {"name": "academic_year", "in": "query", "required": true, "type": "string", "description": "YYYY/YYYY"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Results"],
                "summary": "Create or update one score record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScoreEntry"}}
                ],
                "responses": {
                    "201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/results/bulk": {
            "post": {
                "tags": ["Results"],
                "summary": "Create or update a score sheet",
                "description": "Every row is validated first; one invalid row rejects the whole batch.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkScoreRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/results/{id}": {
            "delete": {
                "tags": ["Results"],
                "summary": "Delete a score record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Deleted record", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/students/{studentId}/results": {
            "delete": {
                "tags": ["Results"],
                "summary": "Delete a student's records for a term",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "required": true, "type": "string", "enum": ["1st Term", "2nd Term", "3rd Term"]},
                    {"name": "academic_year", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/results/students/{studentId}": {
            "get": {
                "tags": ["Results"],
                "summary": "A student's records in a term across classes",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "required": true, "type": "string", "enum": ["1st Term", "2nd Term", "3rd Term"]},
                    {"name": "academic_year", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/results/report": {
            "get": {
                "tags": ["Reports"],
                "summary": "Ranked class report with statistics",
                "parameters": [
                    {"name": "class", "in": "query", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "required": true, "type": "string", "enum": ["1st Term", "2nd Term", "3rd Term"]},
                    {"name": "academic_year", "in": "query", "required": true, "type": "string", "description": "YYYY/YYYY"},
                    {"name": "rank_policy", "in": "query", "type": "string", "enum": ["sequential", "competition", "dense"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/results/students/{studentId}/report": {
            "get": {
                "tags": ["Reports"],
                "summary": "One student's report card within a class",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "class", "in": "query", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "required": true, "type": "string", "enum": ["1st Term", "2nd Term", "3rd Term"]},
                    {"name": "academic_year", "in": "query", "required": true, "type": "string", "description": "YYYY/YYYY"},
                    {"name": "rank_policy", "in": "query", "type": "string", "enum": ["sequential", "competition", "dense"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/results/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download the class broadsheet",
                "produces": ["text/csv", "application/pdf", "text/html"],
                "parameters": [
                    {"name": "class", "in": "query", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "required": true, "type": "string", "enum": ["1st Term", "2nd Term", "3rd Term"]},
                    {"name": "academic_year", "in": "query", "required": true, "type": "string", "description": "YYYY/YYYY"},
                    {"name": "rank_policy", "in": "query", "type": "string", "enum": ["sequential", "competition", "dense"]},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "html"]}
                ],
                "responses": {
                    "200": {"description": "Rendered broadsheet", "schema": {"type": "file"}}
                }
            }
        },
        "/api/v1/results/exports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Archive the class broadsheet behind a signed link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class", "in": "query", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "required": true, "type": "string", "enum": ["1st Term", "2nd Term", "3rd Term"]},
                    {"name": "academic_year", "in": "query", "required": true, "type": "string", "description": "YYYY/YYYY"},
                    {"name": "rank_policy", "in": "query", "type": "string", "enum": ["sequential", "competition", "dense"]},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "html"]}
                ],
                "responses": {
                    "201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/results/exports/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Fetch a published broadsheet",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Archived broadsheet", "schema": {"type": "file"}},
                    "403": {"description": "Link invalid or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ScoreEntry": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "admission_number": {"type": "string"},
                "student_name": {"type": "string"},
                "class_name": {"type": "string"},
                "subject_code": {"type": "string"},
                "subject_name": {"type": "string"},
                "term": {"type": "string", "enum": ["1st Term", "2nd Term", "3rd Term"]},
                "academic_year": {"type": "string"},
                "ca_score": {"type": "string", "description": "0 to 30; blank when not entered"},
                "exam_score": {"type": "string", "description": "0 to 70; blank when not entered"},
                "teacher_name": {"type": "string"}
            },
            "required": ["student_id", "subject_id", "class_name", "term", "academic_year"]
        },
        "BulkScoreRequest": {
            "type": "object",
            "properties": {
                "class_name": {"type": "string"},
                "term": {"type": "string"},
                "academic_year": {"type": "string"},
                "teacher_name": {"type": "string"},
                "entries": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ScoreEntry"}
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
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
