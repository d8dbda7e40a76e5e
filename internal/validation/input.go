package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MaxCatalogNameLength        = 200
	MaxCatalogDescriptionLength = 2000
)

// ValidateLength проверяет длину строки в символах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должно быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должно быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateCatalogName проверяет название каталога.
func ValidateCatalogName(name string) error {
	if err := ValidateNonEmpty("название каталога", name); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if err := ValidateLength("название каталога", name, 1, MaxCatalogNameLength); err != nil {
		return err
	}
	if hasControlChars(name) {
		return fmt.Errorf("название каталога содержит управляющие символы")
	}
	return nil
}

// ValidateCatalogDescription проверяет описание каталога. Пустое описание допустимо.
func ValidateCatalogDescription(description string) error {
	if !utf8.ValidString(description) {
		return fmt.Errorf("описание каталога должно быть в UTF-8")
	}
	return ValidateLength("описание каталога", description, 0, MaxCatalogDescriptionLength)
}

// hasControlChars не считает управляющими переводы строк и табуляцию.
func hasControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return true
		}
	}
	return false
}
