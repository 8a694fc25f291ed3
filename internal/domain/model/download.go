package model

import "time"

// DownloadStatus — состояние записи журнала выдачи.
type DownloadStatus string

const (
	// DownloadPending — запись зарезервирована, ожидается внешнее подтверждение.
	DownloadPending DownloadStatus = "pending"
	// DownloadConfirmed — выдача подтверждена и учтена.
	DownloadConfirmed DownloadStatus = "confirmed"
)

// DownloadEvent — факт выдачи файла пользователю.
// На пару (FileID, UserID) существует не более одной записи.
type DownloadEvent struct {
	ID           int64
	FileID       int64
	UserID       string
	DownloadedAt time.Time
	Status       DownloadStatus
}

// DownloadLogEntry — строка журнала скачиваний (для страницы журнала).
type DownloadLogEntry struct {
	FileID       int64
	Filename     string
	Description  string
	UserID       string
	DownloadedAt time.Time
}
