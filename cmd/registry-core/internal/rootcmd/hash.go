package rootcmd

import (
	"github.com/fibonacci1729/registry/envelope"
	"github.com/fibonacci1729/registry/model"
)

func hashDigestBytes(b []byte) model.CheckpointHash {
	return model.CheckpointHash(envelope.Digest(b))
}
