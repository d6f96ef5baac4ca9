package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Lesson Booking API",
        "description": "Teacher availability and lesson booking",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Availability", "description": "Free weekday/hour cells"},
        {"name": "Bookings", "description": "Lesson booking"},
        {"name": "Teachers", "description": "Teacher slot management"}
    ],
    "paths": {
        "/availability/cells": {
            "get": {
                "tags": ["Availability"],
                "summary": "List free weekday/hour cells",
                "parameters": [
                    {"name": "start", "in": "query", "type": "string", "description": "RFC 3339 or YYYY-MM-DD"},
                    {"name": "end", "in": "query", "type": "string", "description": "RFC 3339 or YYYY-MM-DD"},
                    {"name": "recurring", "in": "query", "type": "boolean"},
                    {"name": "selected", "in": "query", "type": "string", "description": "Comma separated time codes"},
                    {"name": "cells", "in": "query", "type": "string", "description": "Comma separated weekday-hour pairs, e.g. 1-9,2-10"},
                    {"name": "assignedTeacherId", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid window", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability/qualifying-teachers": {
            "post": {
                "tags": ["Availability"],
                "summary": "Resolve teachers covering every selected instant and cell",
                "parameters": [
                    {"name": "start", "in": "query", "type": "string", "description": "Window the cells are placed in"},
                    {"name": "end", "in": "query", "type": "string"},
                    {"name": "cells", "in": "query", "type": "string", "description": "Weekday-hour pairs when the body has none"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/QualifyingTeachersRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability/export": {
            "get": {
                "tags": ["Availability"],
                "summary": "Download the free-cell grid",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "start", "in": "query", "type": "string"},
                    {"name": "end", "in": "query", "type": "string"},
                    {"name": "recurring", "in": "query", "type": "boolean"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "xlsx", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/bookings": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Book lessons with one teacher",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No qualifying teacher or slot taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Too many requests", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/slots/import": {
            "post": {
                "tags": ["Teachers"],
                "summary": "Replace a teacher's slots from an iCalendar document",
                "security": [{"BearerAuth": []}],
                "consumes": ["text/calendar", "multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "file", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "QualifyingTeachersRequest": {
            "type": "object",
            "properties": {
                "selected": {"type": "array", "items": {"type": "integer", "format": "int64"}},
                "cells": {"type": "array", "items": {"$ref": "#/definitions/SelectedCell"}},
                "teacherId": {"type": "integer"}
            }
        },
        "SelectedCell": {
            "type": "object",
            "properties": {
                "weekday": {"type": "integer", "minimum": 0, "maximum": 6},
                "hour": {"type": "integer", "minimum": 0, "maximum": 23}
            }
        },
        "BookingRequest": {
            "type": "object",
            "required": ["instants"],
            "properties": {
                "instants": {"type": "array", "items": {"type": "integer", "format": "int64"}},
                "recurring": {"type": "boolean"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
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
