package lib

import (
	"strings"

	"github.com/iancoleman/strcase"
)

// CollectionName maps a kind name to a storage collection name,
// e.g. "TooManyOpenFiles" -> "too_many_open_files".
func CollectionName(kind string) string {
	return strcase.ToSnake(kind)
}

// HeaderKey derives a record key from a display label,
// e.g. "Service Name" -> "service_name".
func HeaderKey(label string) string {
	return strcase.ToSnake(strings.TrimSpace(label))
}
