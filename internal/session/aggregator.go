package session

import (
	"errors"
	"sort"

	"github.com/lernerlab/medconv/internal/events"
	"github.com/lernerlab/medconv/internal/medpc"
	"github.com/lernerlab/medconv/internal/models"
	"github.com/lernerlab/medconv/internal/opto"
	"github.com/lernerlab/medconv/internal/photometry"
)

// Request describes one session to aggregate.
type Request struct {
	// BehaviorFile is the raw log file holding the session block.
	BehaviorFile string

	// Spec selects the session block within BehaviorFile. Relaxed
	// (partially specified) specs are allowed for the documented
	// box-number-only and date-only archival layouts.
	Spec medpc.MatchSpec

	// SubjectID is the canonical lab-assigned id (after partial-id
	// resolution); it may differ from the id recorded in the header.
	SubjectID string

	// Group and Treatment tag optogenetic sessions; Group is empty for
	// the fiber-photometry cohort.
	Group     models.ExperimentalGroup
	Treatment models.OptogeneticTreatment
}

// Aggregator combines the reader, mapper, matcher, and resolver outputs
// into one AlignedSessionRecord per session. It is read-only over its
// inputs and safe for concurrent use across sessions.
type Aggregator struct {
	// Photometry locates photometry recordings; nil for cohorts
	// recorded without photometry.
	Photometry *photometry.Matcher
}

// Skip is returned (wrapped in the result, not as an error) when the
// skip-list short-circuits a session.
type Skip struct {
	Reason string
}

// Aggregate builds the aligned record for one session. A skip-list match
// returns (nil, *Skip, nil) before any parsing happens; failures return
// a taxonomy error for the batch driver to report, never a panic.
func (a *Aggregator) Aggregate(req Request) (*models.AlignedSessionRecord, *Skip, error) {
	identity := models.SessionIdentity{
		SubjectID: req.SubjectID,
		Date:      req.Spec.Date,
		StartTime: req.Spec.StartTime,
		MSN:       req.Spec.MSN,
		Box:       req.Spec.Box,
	}
	if req.SubjectID != "" {
		if reason, skip := ShouldSkip(identity); skip {
			return nil, &Skip{Reason: reason}, nil
		}
	}

	blocks, blockErrs, err := medpc.Query(req.BehaviorFile, req.Spec)
	if err != nil {
		return nil, nil, err
	}
	if len(blocks) == 0 {
		if len(blockErrs) > 0 {
			return nil, nil, errors.Join(blockErrs...)
		}
		return nil, nil, &models.NotFoundError{Source: req.BehaviorFile, Spec: req.Spec.String()}
	}
	// Duplicate operator saves store the same session twice; the first
	// occurrence in file order is the documented canonical block.
	block := blocks[0]
	identity = block.Identity()
	if req.SubjectID != "" {
		identity.SubjectID = req.SubjectID
	} else {
		// Caller selected the block without naming the subject: adopt
		// the recorded one and run the deferred skip-list check.
		identity.SubjectID = CanonicalSubjectID(identity.SubjectID)
		if reason, skip := ShouldSkip(identity); skip {
			return nil, &Skip{Reason: reason}, nil
		}
	}

	mapped, err := events.Map(identity, block.Variables)
	if err != nil {
		return nil, nil, err
	}

	start, err := identity.StartDateTime()
	if err != nil {
		return nil, nil, &models.ParseError{Source: req.BehaviorFile, Line: block.StartLine, Message: "unparseable session start", Err: err}
	}

	record := &models.AlignedSessionRecord{
		Identity:              identity,
		Start:                 start,
		Events:                mapped.Events,
		PortEntries:           mapped.PortEntries,
		HasPortEntryDurations: mapped.HasPortEntryDurations,
	}

	if a.Photometry != nil {
		photo, err := a.matchPhotometry(identity, record)
		if err != nil {
			return nil, nil, err
		}
		record.Photometry = photo
	}

	if req.Group != "" {
		ogen, err := opto.Resolve(identity, req.Group, req.Treatment, rewardTimes(record), stimChannel(record))
		if err != nil {
			return nil, nil, err
		}
		record.Optogenetics = ogen
	}
	return record, nil, nil
}

// matchPhotometry locates and loads the session's photometry recording,
// applying the correction table and the cross-source TTL consistency
// check.
func (a *Aggregator) matchPhotometry(identity models.SessionIdentity, record *models.AlignedSessionRecord) (*models.PhotometrySessionRecord, error) {
	var opts photometry.MatchOptions
	action, corrected := CorrectionFor(identity.SubjectID, identity.Date)
	if corrected {
		opts.TruncateAt = action.TruncatePhotometryAt
		opts.SecondFolder = action.StitchSecondFolder
	}

	photo, err := a.Photometry.Match(identity.SubjectID, identity.Date, opts)
	if err != nil || photo == nil {
		return photo, err
	}
	if corrected && action.FlipTTLLeftRight {
		flipTTLs(photo.TTLs)
	}
	if err := checkTTLConsistency(identity, record, photo); err != nil {
		return nil, err
	}
	return photo, nil
}

// checkTTLConsistency verifies that each side's TTL channel is present
// whenever the behavioral stream for that side is non-empty. Absence of
// activity correctly produces absence of a channel; absence despite
// activity is a cross-source contradiction surfaced for manual review,
// never patched with fabricated data.
func checkTTLConsistency(identity models.SessionIdentity, record *models.AlignedSessionRecord, photo *models.PhotometrySessionRecord) error {
	checks := []struct {
		event string
		ttl   string
	}{
		{models.EventLeftNosePoke, TTLLeftNosePoke},
		{models.EventRightNosePoke, TTLRightNosePoke},
	}
	for _, c := range checks {
		stream, ok := record.Event(c.event)
		if !ok || len(stream.Timestamps) == 0 {
			continue
		}
		if !photo.HasTTL(c.ttl) {
			return &models.DataInconsistencyError{
				Identity: identity,
				Message:  "behavioral " + c.event + " is non-empty but photometry recorded no " + c.ttl + " TTL channel",
			}
		}
	}
	return nil
}

// rewardTimes merges the left and right reward streams into one ordered
// sequence for the paired stimulation condition.
func rewardTimes(record *models.AlignedSessionRecord) []float64 {
	var merged []float64
	if left, ok := record.Event(models.EventLeftReward); ok {
		merged = append(merged, left.Timestamps...)
	}
	if right, ok := record.Event(models.EventRightReward); ok {
		merged = append(merged, right.Timestamps...)
	}
	sort.Float64s(merged)
	return merged
}

// stimChannel returns the dedicated stimulation stream when the program
// recorded one, nil otherwise.
func stimChannel(record *models.AlignedSessionRecord) []float64 {
	if stream, ok := record.Event(models.EventStimulation); ok {
		return stream.Timestamps
	}
	return nil
}
