package errors

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every layer.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_005"
	ErrCodeTimeout            ErrorCode = "COMMON_006"
	ErrCodeValidation         ErrorCode = "COMMON_007"
	ErrCodeSerialization      ErrorCode = "COMMON_008"
	ErrCodeDatabaseError      ErrorCode = "COMMON_009"
	ErrCodeCacheError         ErrorCode = "COMMON_010"
	ErrCodeExternalService    ErrorCode = "COMMON_011"
)

// Catalog module error codes.
const (
	ErrCodeProductNotFound  ErrorCode = "CAT_001"
	ErrCodeCatalogEmpty     ErrorCode = "CAT_002"
	ErrCodeSpecInvalid      ErrorCode = "CAT_003"
	ErrCodeProfileUndefined ErrorCode = "CAT_004"
)

// Identification (lot/product resolution) error codes.
const (
	ErrCodeLotUnresolved     ErrorCode = "IDN_001"
	ErrCodeProductUnresolved ErrorCode = "IDN_002"
	ErrCodeLotMapUnavailable ErrorCode = "IDN_003"
)

// Aggregation error codes.
const (
	ErrCodeAggregationFailed ErrorCode = "AGG_001"
	ErrCodeNoScorableGroups  ErrorCode = "AGG_002"
)

// Scoring engine / versioning error codes.
const (
	ErrCodeScoringFailed    ErrorCode = "SCORE_001"
	ErrCodeNoActiveVersion  ErrorCode = "SCORE_002"
	ErrCodeSnapshotCorrupt  ErrorCode = "SCORE_003"
	ErrCodeRuleSetEmpty     ErrorCode = "SCORE_004"
	ErrCodeVersionNotFound  ErrorCode = "VER_001"
	ErrCodeVersionNotDraft  ErrorCode = "VER_002"
	ErrCodeVersionImmutable ErrorCode = "VER_003"
)

// Pipeline / source extraction error codes.
const (
	ErrCodeSourceQueryFailed ErrorCode = "ETL_001"
	ErrCodeSheetParseFailed  ErrorCode = "ETL_002"
	ErrCodeRunAborted        ErrorCode = "ETL_003"
	ErrCodePersistFailed     ErrorCode = "ETL_004"
)

// notFoundCodes enumerates the codes treated as "not found" by IsNotFound.
var notFoundCodes = map[ErrorCode]struct{}{
	ErrCodeNotFound:        {},
	ErrCodeProductNotFound: {},
	ErrCodeVersionNotFound: {},
}
