// Package detector recognizes the web, persistence and model
// frameworks a Python tree imports. The layer classifier uses the
// detected import prefixes as routing and storage evidence.
package detector

import (
	"sort"
	"strings"

	"github.com/archlint/archlint/internal/domain"
)

type signalKind int

const (
	signalRouter signalKind = iota
	signalPersistence
	signalModel
)

type entry struct {
	prefix    string
	framework string
	signal    signalKind
}

// registry maps import prefixes to frameworks and the layer signal
// they carry. Longer prefixes win, so django.db reads as persistence
// while django.urls reads as routing.
var registry = []entry{
	{"fastapi", "fastapi", signalRouter},
	{"starlette", "starlette", signalRouter},
	{"flask", "flask", signalRouter},
	{"sanic", "sanic", signalRouter},
	{"aiohttp", "aiohttp", signalRouter},
	{"tornado", "tornado", signalRouter},
	{"bottle", "bottle", signalRouter},
	{"django.urls", "django", signalRouter},
	{"django.views", "django", signalRouter},
	{"django.http", "django", signalRouter},
	{"django.shortcuts", "django", signalRouter},
	{"rest_framework", "django-rest-framework", signalRouter},

	{"sqlalchemy", "sqlalchemy", signalPersistence},
	{"peewee", "peewee", signalPersistence},
	{"pymongo", "pymongo", signalPersistence},
	{"motor", "motor", signalPersistence},
	{"psycopg2", "psycopg2", signalPersistence},
	{"psycopg", "psycopg", signalPersistence},
	{"asyncpg", "asyncpg", signalPersistence},
	{"aiosqlite", "aiosqlite", signalPersistence},
	{"sqlite3", "sqlite3", signalPersistence},
	{"redis", "redis", signalPersistence},
	{"alembic", "alembic", signalPersistence},
	{"django.db", "django", signalPersistence},

	{"pydantic", "pydantic", signalModel},
	{"marshmallow", "marshmallow", signalModel},
	{"attrs", "attrs", signalModel},
	{"attr", "attrs", signalModel},
}

// FrameworkDetector implements domain.FrameworkDetector by longest
// prefix match over every absolute import in the tree.
type FrameworkDetector struct{}

func New() *FrameworkDetector {
	return &FrameworkDetector{}
}

func (d *FrameworkDetector) Detect(units map[string]*domain.SourceUnit) domain.FrameworkInfo {
	frameworks := make(map[string]bool)
	routers := make(map[string]bool)
	persistence := make(map[string]bool)
	models := make(map[string]bool)

	for _, u := range units {
		for _, imp := range u.Imports {
			if imp.Dots > 0 || imp.Module == "" {
				continue
			}
			entry, ok := match(imp.Module)
			if !ok {
				continue
			}
			frameworks[entry.framework] = true
			switch entry.signal {
			case signalRouter:
				routers[entry.prefix] = true
			case signalPersistence:
				persistence[entry.prefix] = true
			case signalModel:
				models[entry.prefix] = true
			}
		}
	}

	return domain.FrameworkInfo{
		Frameworks:         sortedSet(frameworks),
		RouterModules:      sortedSet(routers),
		PersistenceModules: sortedSet(persistence),
		ModelModules:       sortedSet(models),
	}
}

// match returns the registry entry with the longest prefix matching
// the imported module.
func match(module string) (entry, bool) {
	best := -1
	for i, e := range registry {
		if module != e.prefix && !strings.HasPrefix(module, e.prefix+".") {
			continue
		}
		if best < 0 || len(e.prefix) > len(registry[best].prefix) {
			best = i
		}
	}
	if best < 0 {
		return entry{}, false
	}
	return registry[best], true
}

func sortedSet(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
