package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ExamSched API",
        "description": "Exam and concours room scheduling backend",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Administrator authentication"},
        {"name": "Rooms", "description": "Room catalog and availability"},
        {"name": "Events", "description": "Exam and concours sessions"},
        {"name": "Scheduling", "description": "Room reservation and seat assignment"},
        {"name": "Participants", "description": "Participant registry and CSV import"},
        {"name": "Convocations", "description": "Generated document downloads"}
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
        "/rooms/occupied": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List ids of rooms occupied during a slot",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "required": true},
                    {"name": "start", "in": "query", "type": "string", "required": true},
                    {"name": "end", "in": "query", "type": "string", "required": true},
                    {"name": "department", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/rooms/availability": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List rooms free during a slot",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "required": true},
                    {"name": "start", "in": "query", "type": "string", "required": true},
                    {"name": "end", "in": "query", "type": "string", "required": true},
                    {"name": "department", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/events/{id}/assignments": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Commit room and participant selection for an event",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Committed"},
                    "409": {"description": "Room already booked for an overlapping interval"},
                    "422": {"description": "Selected rooms cannot seat every participant"}
                }
            },
            "delete": {
                "tags": ["Scheduling"],
                "summary": "Release an event's rooms and assignments",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Released"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "ExamSched API",
	Description:      "Exam and concours room scheduling backend",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
