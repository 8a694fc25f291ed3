package model

import "time"

// FileRecord — материал курса в реестре.
// Хранится в таблице files.
type FileRecord struct {
	// ID — идентификатор записи (генерируется базой)
	ID int64
	// Description — описание; при загрузке без описания равно Filename
	Description string
	// Filename — исходное имя файла, как его прислал пользователь
	Filename string
	// Scope — область, которой принадлежит файл
	Scope ScopeKey
	// Deleted — признак мягкого удаления
	Deleted bool
	// StoredFilename — имя файла на диске (уникально внутри области)
	StoredFilename string
	// UploaderID — идентификатор загрузившего пользователя
	UploaderID string
	// CreatedAt — время загрузки
	CreatedAt time.Time
}

// Label возвращает текст для отображения в списке.
func (f *FileRecord) Label() string {
	if f.Description != "" {
		return f.Description
	}
	return f.Filename
}
