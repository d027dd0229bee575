package envelope

import "errors"

var (
	ErrCBORCodecNotProvided = errors.New("a CBOR codec was required but not provided")
	ErrSignerNotProvided    = errors.New("a signer was required but not provided")
	ErrVerifyFailed         = errors.New("the envelope signature verification failed")
	ErrKeyIDMismatch        = errors.New("the envelope key id does not match any known key")
)
