package notion

import (
	"fmt"
)

// ErrorKind classifies a failed sync.
type ErrorKind int

// Sync failure kinds.
const (
	KindInvalidCredential ErrorKind = iota + 1
	KindCollectionNotFound
	KindServerError
	KindConnectionFailed
	KindMalformedResponse
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidCredential:
		return "InvalidCredential"
	case KindCollectionNotFound:
		return "CollectionNotFound"
	case KindServerError:
		return "ServerError"
	case KindConnectionFailed:
		return "ConnectionFailed"
	case KindMalformedResponse:
		return "MalformedResponse"
	default:
		return "Unknown"
	}
}

// Code returns the API error code for the kind.
func (k ErrorKind) Code() string {
	switch k {
	case KindInvalidCredential:
		return "SYNC_INVALID_CREDENTIAL"
	case KindCollectionNotFound:
		return "SYNC_COLLECTION_NOT_FOUND"
	case KindServerError:
		return "SYNC_SERVER_ERROR"
	case KindConnectionFailed:
		return "SYNC_CONNECTION_FAILED"
	case KindMalformedResponse:
		return "SYNC_MALFORMED_RESPONSE"
	default:
		return "SYNC_UNKNOWN"
	}
}

// SyncError is a failed sync. Message is the user-facing guidance text.
type SyncError struct {
	Kind    ErrorKind
	Status  int // HTTP status, only for ServerError
	Message string
	Err     error
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is matches another *SyncError of the same kind.
func (e *SyncError) Is(target error) bool {
	t, ok := target.(*SyncError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Code returns the API error code.
func (e *SyncError) Code() string {
	return e.Kind.Code()
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidCredential  = &SyncError{Kind: KindInvalidCredential}
	ErrCollectionNotFound = &SyncError{Kind: KindCollectionNotFound}
	ErrServerError        = &SyncError{Kind: KindServerError}
	ErrConnectionFailed   = &SyncError{Kind: KindConnectionFailed}
	ErrMalformedResponse  = &SyncError{Kind: KindMalformedResponse}
)

func invalidCredential() *SyncError {
	return &SyncError{
		Kind:    KindInvalidCredential,
		Message: "【驗證失敗】Secret 金鑰無效。請確認是 ntn_ 或 secret_ 開頭的完整字串。",
	}
}

func collectionNotFound() *SyncError {
	return &SyncError{
		Kind:    KindCollectionNotFound,
		Message: "【找不到資料庫】請確認 ID 正確，並務必在 Notion 頁面「Add connections」連結此金鑰。",
	}
}

func serverError(status int) *SyncError {
	return &SyncError{
		Kind:    KindServerError,
		Status:  status,
		Message: fmt.Sprintf("【伺服器錯誤】HTTP %d。請檢查網路或稍後再試。", status),
	}
}

func connectionFailed(err error) *SyncError {
	return &SyncError{
		Kind:    KindConnectionFailed,
		Message: "【連線失敗】無法觸及 Notion API。這通常是因為金鑰未被授權存取該資料庫。請確認已執行「Add connections」步驟。",
		Err:     err,
	}
}

func malformedResponse(err error) *SyncError {
	return &SyncError{
		Kind:    KindMalformedResponse,
		Message: "【格式錯誤】無法解析 Notion 回傳的資料。",
		Err:     err,
	}
}
