// Package purpose scores extracted features against a catalogue of purpose
// categories. The catalogue is static and loaded at process start; declaration
// order is the deterministic tie-breaker for equal confidence.
package purpose

// Category is a purpose category with a weighted keyword signature.
type Category struct {
	Name     string
	Keywords map[string]float64 // normalized keyword -> weight
}

// maxScore is the highest attainable weighted overlap for the category,
// used to normalize confidence into [0,1].
func (c Category) maxScore() float64 {
	var total float64
	for _, w := range c.Keywords {
		total += w
	}
	return total
}

// Catalogue returns the built-in purpose categories in declaration order.
// The slice is freshly allocated so callers cannot mutate the catalogue.
func Catalogue() []Category {
	return []Category{
		{
			Name: "validation",
			Keywords: map[string]float64{
				"validate": 1.0, "valid": 0.8, "check": 0.8, "verify": 0.9,
				"assert": 0.7, "ensure": 0.7, "require": 0.5, "sanitize": 0.8,
				"regex": 0.5, "test": 0.3, "format": 0.3, "email": 0.2,
			},
		},
		{
			Name: "transformation",
			Keywords: map[string]float64{
				"transform": 1.0, "convert": 1.0, "map": 0.6, "parse": 0.8,
				"format": 0.6, "serialize": 0.9, "deserialize": 0.9,
				"encode": 0.8, "decode": 0.8, "normalize": 0.7, "marshal": 0.8,
			},
		},
		{
			Name: "api_communication",
			Keywords: map[string]float64{
				"http": 1.0, "request": 0.9, "fetch": 0.9, "response": 0.8,
				"api": 0.9, "endpoint": 0.9, "url": 0.7, "client": 0.6,
				"post": 0.5, "get": 0.3, "header": 0.5, "status": 0.4,
			},
		},
		{
			Name: "data_access",
			Keywords: map[string]float64{
				"query": 1.0, "select": 0.8, "insert": 0.8, "update": 0.7,
				"delete": 0.7, "sql": 0.9, "db": 0.8, "database": 0.9,
				"repository": 0.9, "save": 0.6, "find": 0.5, "persist": 0.8,
			},
		},
		{
			Name: "computation",
			Keywords: map[string]float64{
				"calculate": 1.0, "compute": 1.0, "sum": 0.8, "total": 0.7,
				"average": 0.8, "count": 0.5, "math": 0.7, "score": 0.5,
				"min": 0.4, "max": 0.4,
			},
		},
		{
			Name: "configuration",
			Keywords: map[string]float64{
				"config": 1.0, "configuration": 1.0, "settings": 0.9,
				"options": 0.7, "env": 0.7, "default": 0.5, "load": 0.4,
				"init": 0.4, "setup": 0.6,
			},
		},
		{
			Name: "error_handling",
			Keywords: map[string]float64{
				"error": 1.0, "err": 0.8, "catch": 0.9, "throw": 0.8,
				"exception": 0.9, "handle": 0.6, "retry": 0.7, "fallback": 0.7,
				"recover": 0.7, "panic": 0.7,
			},
		},
		{
			Name: "logging_monitoring",
			Keywords: map[string]float64{
				"log": 1.0, "logger": 1.0, "debug": 0.7, "trace": 0.7,
				"metric": 0.8, "monitor": 0.8, "report": 0.5, "audit": 0.7,
				"console": 0.6, "print": 0.4,
			},
		},
		{
			Name: "orchestration",
			Keywords: map[string]float64{
				"run": 0.6, "execute": 0.9, "process": 0.7, "pipeline": 1.0,
				"workflow": 1.0, "dispatch": 0.8, "schedule": 0.8,
				"coordinate": 0.9, "worker": 0.6, "task": 0.5,
			},
		},
		{
			Name: "testing",
			Keywords: map[string]float64{
				"test": 0.9, "mock": 1.0, "stub": 0.9, "expect": 0.8,
				"fixture": 0.9, "spec": 0.6, "suite": 0.6, "assert": 0.5,
			},
		},
	}
}
