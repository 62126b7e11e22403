// Package openapi отдаёт встроенное описание HTTP API.
package openapi

import "embed"

//go:embed api.swagger.json
var content embed.FS

// GetSpec читает описание API из бинарника
func GetSpec() ([]byte, error) {
	return content.ReadFile("api.swagger.json")
}

// MustGetSpec как GetSpec, но паникует при ошибке чтения.
// Файл вшит на этапе сборки, так что ошибка означает битый бинарник.
func MustGetSpec() []byte {
	data, err := GetSpec()
	if err != nil {
		panic("openapi: " + err.Error())
	}
	return data
}
