package gateway

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Bind раскладывает позиционные аргументы по полям с тегом `arg:"N"`
// и проверяет структуру тегами validate. Поддерживаются string, int, int64.
// Ошибки возвращаются как common.ErrValidation с текстом usage.
//
//	type betArgs struct {
//		Bet int64 `arg:"0" validate:"gt=0"`
//	}
func Bind(args []string, dst any, usage string) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bind: ожидается указатель на структуру, получено %T", dst)
	}
	v = v.Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, ok := field.Tag.Lookup("arg")
		if !ok {
			continue
		}
		optional := strings.HasSuffix(tag, ",optional")
		idx, err := strconv.Atoi(strings.TrimSuffix(tag, ",optional"))
		if err != nil {
			return fmt.Errorf("bind: некорректный тег arg у поля %s", field.Name)
		}
		if idx >= len(args) {
			if optional {
				continue
			}
			return common.Validation("формат: %s", usage)
		}
		raw := args[idx]
		fv := v.Field(i)

		switch fv.Kind() {
		case reflect.String:
			fv.SetString(raw)
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(strings.ReplaceAll(raw, "_", ""), 10, 64)
			if err != nil {
				return common.Validation("«%s» — не число. Формат: %s", raw, usage)
			}
			fv.SetInt(n)
		default:
			return fmt.Errorf("bind: неподдерживаемый тип поля %s", field.Name)
		}
	}

	if err := getValidator().Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return common.Validation("некорректный аргумент %s. Формат: %s", strings.ToLower(verrs[0].Field()), usage)
		}
		return common.Validation("формат: %s", usage)
	}
	return nil
}
