package rootcmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fibonacci1729/registry/core"
	"github.com/fibonacci1729/registry/envelope"
	"github.com/fibonacci1729/registry/model"
	"github.com/fibonacci1729/registry/pkgvalidator"
	"github.com/fibonacci1729/registry/sink"
	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const demoPackageName = "example-package"

// newServeCmd builds a Core Service from a freshly bootstrapped genesis
// pair and drives one publish -> checkpoint -> fetch cycle against it, to
// demonstrate the actor end to end the way a smoke test would.
func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a demonstration publish/checkpoint/fetch cycle against an in-memory core",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd, v)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command, v *viper.Viper) error {
	genesisRecord, genesisCheckpoint, signer, err := buildGenesis(ctx)
	if err != nil {
		return fmt.Errorf("serve: building genesis: %w", err)
	}

	channelSink := sink.NewChannelSink(16)
	var leafSink sink.Sink = channelSink

	var archive *sink.ArchivingSink
	if container := v.GetString("archive-container"); container != "" {
		writer := newMemoryBlobWriter()
		archive = sink.NewArchivingSink(channelSink, writer, container+"/")
		leafSink = archive
		fmt.Fprintf(cmd.OutOrStdout(), "archiving installed checkpoints under prefix %q (in-memory demo store)\n", container+"/")
	}

	svc, err := core.New(genesisRecord, genesisCheckpoint, leafSink, v.GetInt("mailbox-capacity"))
	if err != nil {
		return fmt.Errorf("serve: constructing core service: %w", err)
	}
	defer svc.Close()

	codec, err := envelope.NewCodec()
	if err != nil {
		return fmt.Errorf("serve: building envelope codec: %w", err)
	}
	pkgEnv, err := envelope.NewSignedEnvelope[pkgvalidator.Payload](codec, signer)
	if err != nil {
		return err
	}

	initPayload := pkgvalidator.Payload{Op: pkgvalidator.Init, Key: signer.KeyIdentifier()}
	initRecord, err := signRecord(ctx, pkgEnv, signer, initPayload)
	if err != nil {
		return fmt.Errorf("serve: signing package init record: %w", err)
	}
	initID := model.RecordId(envelope.Digest(initRecord.Signed))
	initState, err := svc.SubmitPackageRecord(ctx, demoPackageName, initRecord, nil)
	if err != nil {
		return fmt.Errorf("serve: submitting package init record: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "submitted init record: state=%s\n", initState.Kind)

	releaseDigest := model.ContentDigest(envelope.Digest([]byte("tarball contents for v1.0.0")))
	releasePayload := pkgvalidator.Payload{Op: pkgvalidator.Release, Version: "v1.0.0", ContentDigest: releaseDigest}
	releaseRecord, err := signRecord(ctx, pkgEnv, signer, releasePayload)
	if err != nil {
		return fmt.Errorf("serve: signing release record: %w", err)
	}
	releaseID := model.RecordId(envelope.Digest(releaseRecord.Signed))
	sources := []model.ContentSource{{Digest: releaseDigest, Kind: model.HttpAnonymous, URL: "https://example.invalid/v1.0.0.tgz"}}
	releaseState, err := svc.SubmitPackageRecord(ctx, demoPackageName, releaseRecord, sources)
	if err != nil {
		return fmt.Errorf("serve: submitting release record: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "submitted release record: state=%s\n", releaseState.Kind)

	logID := model.NewLogId(demoPackageName)
	// Both records submitted above are still Processing at this point; the
	// checkpoint must cover the shard's whole Processing prefix in
	// submission order (spec.md §4.1 step 3), not just the most recent
	// record, or the earlier one is left stuck Processing forever despite
	// checkpointIndices implying the shard's published prefix moved past it.
	leaves := []model.LogLeaf{
		{LogId: logID, RecordId: initID},
		{LogId: logID, RecordId: releaseID},
	}

	candidate, err := svc.BuildCheckpointCandidate(ctx)
	if err != nil {
		return fmt.Errorf("serve: building checkpoint candidate: %w", err)
	}
	candidate.TimestampMS = time.Now().UnixMilli()

	cpEnv, err := envelope.NewSignedEnvelope[model.CheckpointCandidate](codec, signer)
	if err != nil {
		return err
	}
	signedCheckpoint, err := cpEnv.Sign(ctx, candidate, nil)
	if err != nil {
		return fmt.Errorf("serve: signing checkpoint: %w", err)
	}
	checkpoint := model.Checkpoint{
		Envelope:  model.Envelope{Signed: signedCheckpoint, KeyId: signer.KeyIdentifier()},
		Candidate: candidate,
	}

	if err := svc.NewCheckpoint(ctx, checkpoint, leaves); err != nil {
		return fmt.Errorf("serve: installing checkpoint: %w", err)
	}
	h := checkpoint.Hash(hashDigestBytes)
	fmt.Fprintf(cmd.OutOrStdout(), "installed checkpoint: %s\n", h)

	if archive != nil {
		if err := archive.ArchiveCheckpoint(ctx, h, signedCheckpoint); err != nil {
			return fmt.Errorf("serve: archiving checkpoint: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "archived checkpoint to in-memory demo store")
	}

	records, err := svc.FetchPackageRecords(ctx, h, demoPackageName, nil)
	if err != nil {
		return fmt.Errorf("serve: fetching package records: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "fetched %d record(s) published under %s\n", len(records), h)

	info, err := svc.GetPackageRecordInfo(ctx, logID, releaseID)
	if err != nil {
		return fmt.Errorf("serve: fetching release record info: %w", err)
	}
	if info == nil {
		return fmt.Errorf("serve: release record %s not yet published after its covering checkpoint was installed", releaseID)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "release record %s published at checkpoint %s\n", releaseID, info.Checkpoint)

	return nil
}

// signRecord is the small signing helper every package record above
// shares: marshal the payload to canonical CBOR for the returned
// model.Envelope's Payload field, and sign it for the Signed field.
func signRecord(ctx context.Context, env *envelope.SignedEnvelope[pkgvalidator.Payload], signer envelope.IdentifiableCoseSigner, payload pkgvalidator.Payload) (model.Envelope, error) {
	signed, err := env.Sign(ctx, payload, nil)
	if err != nil {
		return model.Envelope{}, err
	}
	payloadBytes, err := cbor.Marshal(payload)
	if err != nil {
		return model.Envelope{}, err
	}
	return model.Envelope{Signed: signed, Payload: payloadBytes, KeyId: signer.KeyIdentifier()}, nil
}
