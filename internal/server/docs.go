package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/jonathan/job-tracker/internal/types"
	"gopkg.in/yaml.v3"
)

// DocsConfig holds the values rendered into the OpenAPI document.
type DocsConfig struct {
	Title       string
	Version     string
	Description string
	ServerURL   string
}

// OpenAPI is an OpenAPI 3 document describing the server's routes.
type OpenAPI struct {
	OpenAPI    string         `json:"openapi" yaml:"openapi"`
	Info       OpenAPIInfo    `json:"info" yaml:"info"`
	Servers    []OpenAPIURL   `json:"servers,omitempty" yaml:"servers,omitempty"`
	Paths      map[string]any `json:"paths" yaml:"paths"`
	Components map[string]any `json:"components" yaml:"components"`
}

// OpenAPIInfo is the info object of an OpenAPI document.
type OpenAPIInfo struct {
	Title       string `json:"title" yaml:"title"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// OpenAPIURL is a server entry of an OpenAPI document.
type OpenAPIURL struct {
	URL string `json:"url" yaml:"url"`
}

type obj = map[string]any

// BuildOpenAPI describes the job, auth and health routes.
func BuildOpenAPI(cfg DocsConfig) *OpenAPI {
	doc := &OpenAPI{
		OpenAPI: "3.0.3",
		Info: OpenAPIInfo{
			Title:       cfg.Title,
			Version:     cfg.Version,
			Description: cfg.Description,
		},
		Paths: obj{
			"/health": obj{
				"get": obj{
					"summary": "Liveness check",
					"tags":    []string{"Health"},
					"responses": obj{
						"200": obj{
							"description": "Server is healthy",
							"content":     obj{"text/plain": obj{"schema": obj{"type": "string"}}},
						},
					},
				},
			},
			"/api/v1/jobs": obj{
				"get": secured(obj{
					"summary": "List jobs",
					"tags":    []string{"Jobs"},
					"parameters": []obj{
						queryParam("page", "Page number, starting at 1", 1),
						queryParam("limit", "Jobs per page", 10),
					},
					"responses": withErrors(obj{
						"200": envelopeResponse("Jobs Retrieved", obj{"type": "array", "items": ref("Job")}),
					}, "401", "403"),
				}),
				"post": secured(obj{
					"summary":     "Create a job",
					"tags":        []string{"Jobs"},
					"requestBody": jsonBody(ref("JobInput")),
					"responses": withErrors(obj{
						"201": envelopeResponse("Job Created", ref("Job")),
					}, "400", "401", "403"),
				}),
			},
			"/api/v1/jobs/{id}": obj{
				"parameters": []obj{{
					"name": "id", "in": "path", "required": true,
					"schema": obj{"type": "string"},
				}},
				"get": secured(obj{
					"summary": "Get a job",
					"tags":    []string{"Jobs"},
					"responses": withErrors(obj{
						"200": envelopeResponse("Job Retrieved", ref("Job")),
					}, "401", "403", "404"),
				}),
				"put": secured(obj{
					"summary":     "Update a job",
					"tags":        []string{"Jobs"},
					"requestBody": jsonBody(ref("JobUpdate")),
					"responses": withErrors(obj{
						"200": envelopeResponse("Job Updated", ref("Job")),
					}, "400", "401", "403", "404"),
				}),
				"delete": secured(obj{
					"summary": "Delete a job",
					"tags":    []string{"Jobs"},
					"responses": withErrors(obj{
						"200": envelopeResponse("Job deleted", obj{"type": "string", "example": "Job Deleted"}),
					}, "401", "403"),
				}),
			},
			"/api/v1/auth/register": obj{
				"post": obj{
					"summary":     "Register a user",
					"tags":        []string{"Auth"},
					"requestBody": jsonBody(ref("Credentials")),
					"responses": withErrors(obj{
						"201": envelopeResponse("User registered", ref("User")),
					}, "400", "409"),
				},
			},
			"/api/v1/auth/login": obj{
				"post": obj{
					"summary":     "Log in and receive a bearer token",
					"tags":        []string{"Auth"},
					"requestBody": jsonBody(ref("Credentials")),
					"responses": withErrors(obj{
						"200": envelopeResponse("User logged in", ref("Token")),
					}, "400", "401"),
				},
			},
		},
		Components: obj{
			"securitySchemes": obj{
				"bearerAuth": obj{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
			"schemas": obj{
				"Job":         jobSchema(schemaStored),
				"JobInput":    jobSchema(schemaCreate),
				"JobUpdate":   jobSchema(schemaUpdate),
				"Credentials": credentialsSchema(),
				"User": obj{
					"type": "object",
					"properties": obj{
						"id":        obj{"type": "string"},
						"email":     obj{"type": "string", "format": "email"},
						"role":      obj{"type": "string", "enum": []string{types.RoleUser, types.RoleAdmin}},
						"createdAt": obj{"type": "string", "format": "date-time"},
					},
				},
				"Token": obj{
					"type":       "object",
					"properties": obj{"token": obj{"type": "string"}},
				},
				"Error": obj{
					"type": "object",
					"properties": obj{
						"status":  obj{"type": "string", "example": "error"},
						"message": obj{"type": "string"},
						"code":    obj{"type": "string"},
					},
				},
			},
		},
	}

	if cfg.ServerURL != "" {
		doc.Servers = []OpenAPIURL{{URL: cfg.ServerURL}}
	}
	return doc
}

func ref(name string) obj {
	return obj{"$ref": "#/components/schemas/" + name}
}

func secured(op obj) obj {
	op["security"] = []obj{{"bearerAuth": []string{}}}
	return op
}

func queryParam(name, description string, def int) obj {
	return obj{
		"name":        name,
		"in":          "query",
		"description": description,
		"schema":      obj{"type": "integer", "minimum": 1, "default": def},
	}
}

func jsonBody(schema obj) obj {
	return obj{
		"required": true,
		"content":  obj{"application/json": obj{"schema": schema}},
	}
}

func envelopeResponse(message string, data obj) obj {
	return obj{
		"description": message,
		"content": obj{"application/json": obj{"schema": obj{
			"type": "object",
			"properties": obj{
				"status":  obj{"type": "string", "example": "success"},
				"message": obj{"type": "string", "example": message},
				"data":    data,
			},
		}}},
	}
}

var errorDescriptions = map[string]string{
	"400": "Validation error",
	"401": "Missing or invalid token",
	"403": "Insufficient role",
	"404": "Not found",
	"409": "Conflict",
}

func withErrors(responses obj, codes ...string) obj {
	for _, code := range codes {
		responses[code] = obj{
			"description": errorDescriptions[code],
			"content":     obj{"application/json": obj{"schema": ref("Error")}},
		}
	}
	responses["500"] = obj{
		"description": "Internal server error",
		"content":     obj{"application/json": obj{"schema": ref("Error")}},
	}
	return responses
}

type jobSchemaKind int

const (
	schemaStored jobSchemaKind = iota
	schemaCreate
	schemaUpdate
)

func jobSchema(kind jobSchemaKind) obj {
	props := obj{
		"title":       obj{"type": "string", "minLength": 1},
		"company":     obj{"type": "string", "minLength": 1},
		"location":    obj{"type": "string", "minLength": 1},
		"url":         obj{"type": "string", "format": "uri"},
		"description": obj{"type": "string", "minLength": 1},
		"level":       obj{"type": "string", "enum": types.JobLevels},
		"mode":        obj{"type": "string", "enum": types.JobModes},
		"stage":       obj{"type": "string", "enum": types.JobStages},
		"date_posted": obj{"type": "string", "format": "date"},
		"active":      obj{"type": "boolean"},
		"createdAt":   obj{"type": "string", "format": "date-time"},
		"updatedAt":   obj{"type": "string", "format": "date-time"},
	}
	schema := obj{"type": "object", "properties": props}
	switch kind {
	case schemaStored:
		props["id"] = obj{"type": "string"}
	case schemaCreate:
		props["id"] = obj{"type": "string", "minLength": 1}
		schema["additionalProperties"] = false
		schema["required"] = []string{
			"title", "company", "location", "url", "description",
			"level", "mode", "stage", "date_posted", "active",
		}
	case schemaUpdate:
		schema["additionalProperties"] = false
		schema["minProperties"] = 1
	}
	return schema
}

func credentialsSchema() obj {
	return obj{
		"type":     "object",
		"required": []string{"email", "password"},
		"properties": obj{
			"email":    obj{"type": "string", "format": "email"},
			"password": obj{"type": "string", "minLength": 8},
		},
	}
}

// handleOpenAPIJSON serves the API description as JSON.
func (s *Server) handleOpenAPIJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.openAPI); err != nil {
		log.Printf("[http] Error encoding OpenAPI document: %v", err)
	}
}

// handleOpenAPIYAML serves the API description as YAML.
func (s *Server) handleOpenAPIYAML(w http.ResponseWriter, r *http.Request) {
	out, err := yaml.Marshal(s.openAPI)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(out)
}
