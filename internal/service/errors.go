// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден или недоступен вызывающему.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrPermission — у пользователя нет требуемого права.
	ErrPermission = errors.New("недостаточно прав")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrStorageUnavailable — не удалось создать каталог области или записать файл.
	ErrStorageUnavailable = errors.New("хранилище файлов недоступно")
	// ErrBlobMissing — запись реестра есть, а файла на диске нет.
	ErrBlobMissing = errors.New("файл отсутствует в хранилище")
	// ErrDeliveryNotConfirmed — внешний сервис не подтвердил выдачу
	// или журнал выдачи не удалось обновить.
	ErrDeliveryNotConfirmed = errors.New("выдача материала не подтверждена")
	// ErrLMSUnavailable — платформа обучения недоступна.
	ErrLMSUnavailable = errors.New("платформа обучения недоступна")
)
