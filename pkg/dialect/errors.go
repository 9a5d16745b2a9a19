package dialect

import "errors"

// Schema errors. Any of these failing a Load is fatal at startup: the router
// must never run against a partially loaded dialect.
var (
	ErrMessageWithoutID   = errors.New("dialect: message definition has no id")
	ErrMessageWithoutName = errors.New("dialect: message definition has no name")
	ErrInvalidMessageID   = errors.New("dialect: message definition has an invalid id")
	ErrDuplicateMessageID = errors.New("dialect: duplicate message id")
	ErrFieldWithoutName   = errors.New("dialect: field definition has no name")
	ErrFieldWithoutType   = errors.New("dialect: field definition has no type")
	ErrUnknownFieldType   = errors.New("dialect: unknown field type")
	ErrMalformedArrayLen  = errors.New("dialect: malformed array length")
	ErrZeroArrayLen       = errors.New("dialect: zero array length")
	ErrMultipleExtensions = errors.New("dialect: multiple extensions markers in one message")
	ErrTargetFieldNotU8   = errors.New("dialect: target field must be a uint8_t")
	ErrTargetFieldArray   = errors.New("dialect: target field must be a single value")
	ErrMissingTargetSys   = errors.New("dialect: target_component without target_system")
	ErrUndefinedEnum      = errors.New("dialect: field references an undefined enum")
)
