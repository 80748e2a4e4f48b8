package lang

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// openapiFileNames mirrors the teacher's federation/detector_openapi.go
// known-filenames list, trimmed to the YAML/JSON names this module parses
// with yaml.v3 (JSON is valid YAML so the same unmarshaler handles both).
var openapiFileNames = []string{
	"openapi.yaml", "openapi.yml", "openapi.json",
	"swagger.yaml", "swagger.yml", "swagger.json",
}

// RouteSpec is one declared route recovered from an OpenAPI/Swagger
// document, used to corroborate HTTP_ROUTE edges (spec §4.C, SPEC_FULL
// DOMAIN STACK: gopkg.in/yaml.v3 wiring).
type RouteSpec struct {
	Method string
	Path   string
}

// LoadOpenAPIRoutes scans repoRoot's top level for an OpenAPI/Swagger
// document and returns its declared routes, or nil if none is found or it
// fails to parse — a missing spec is not an error, just no corroboration.
func LoadOpenAPIRoutes(repoRoot string) []RouteSpec {
	for _, name := range openapiFileNames {
		data, err := os.ReadFile(filepath.Join(repoRoot, name))
		if err != nil {
			continue
		}
		routes, ok := parseOpenAPIRoutes(data)
		if ok {
			return routes
		}
	}
	return nil
}

func parseOpenAPIRoutes(data []byte) ([]RouteSpec, bool) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, false
	}
	if doc["openapi"] == nil && doc["swagger"] == nil {
		return nil, false
	}
	paths, ok := doc["paths"].(map[string]interface{})
	if !ok {
		return nil, false
	}
	var routes []RouteSpec
	for path, methodsRaw := range paths {
		methods, ok := methodsRaw.(map[string]interface{})
		if !ok {
			continue
		}
		for method := range methods {
			m := strings.ToUpper(method)
			switch m {
			case "GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS":
				routes = append(routes, RouteSpec{Method: m, Path: path})
			}
		}
	}
	return routes, true
}

// CorroborateRoute raises an HTTP_ROUTE edge's confidence to 1.0 when it
// matches a declared route literally (method and path both equal), per the
// SPEC_FULL DOMAIN STACK entry for gopkg.in/yaml.v3.
func CorroborateRoute(routes []RouteSpec, method, path string, baseConfidence float64) float64 {
	for _, r := range routes {
		if r.Method == strings.ToUpper(method) && r.Path == path {
			return 1.0
		}
	}
	return baseConfidence
}
