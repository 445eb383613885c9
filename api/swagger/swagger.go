package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Madrasa API",
        "description": "Education management backend: classrooms, exams, homework, live sessions and video lessons",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Registration, sign-in and token rotation"},
        {"name": "Students", "description": "Student roster and provisioning"},
        {"name": "Classrooms", "description": "Classrooms and enrollment"},
        {"name": "Exams", "description": "Exam authoring, taking and results"},
        {"name": "Homework", "description": "Homework assignment, submission and grading"},
        {"name": "LiveSessions", "description": "Scheduled live sessions and attendance"},
        {"name": "Videos", "description": "Video lesson library and watch progress"},
        {"name": "Notifications", "description": "Per-user notifications and realtime stream"},
        {"name": "Dashboard", "description": "Aggregated counters"},
        {"name": "Calendar", "description": "Merged deadline feed"},
        {"name": "Export", "description": "CSV and PDF downloads"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate a teacher by email",
                "responses": {
                    "200": {"description": "Token pair"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/student-login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate a student by generated username",
                "responses": {
                    "200": {"description": "Token pair"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Provision a student with one-time credentials",
                "responses": {
                    "201": {"$ref": "#/responses/Envelope"}
                }
            }
        },
        "/exams": {
            "get": {
                "tags": ["Exams"],
                "summary": "List exams with derived temporal state",
                "responses": {
                    "200": {"$ref": "#/responses/Envelope"}
                }
            },
            "post": {
                "tags": ["Exams"],
                "summary": "Create an exam with its questions",
                "responses": {
                    "201": {"$ref": "#/responses/Envelope"}
                }
            }
        },
        "/me/exams/{id}/submit": {
            "post": {
                "tags": ["Exams"],
                "summary": "Submit answers, auto-grading objective questions",
                "responses": {
                    "201": {"$ref": "#/responses/Envelope"},
                    "409": {"description": "Already submitted"},
                    "422": {"description": "Exam window closed"}
                }
            }
        }
    },
    "responses": {
        "Envelope": {
            "description": "Standard response envelope",
            "schema": {"$ref": "#/definitions/ResponseEnvelope"}
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
