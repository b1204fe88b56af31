package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lernerlab/medconv/internal/logger"
	"github.com/lernerlab/medconv/internal/medpc"
	"github.com/lernerlab/medconv/internal/models"
	"github.com/lernerlab/medconv/internal/nwb"
	"github.com/lernerlab/medconv/internal/photometry"
	"github.com/lernerlab/medconv/internal/session"
)

// NewConvertCommand creates the convert command
func NewConvertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <log-file>",
		Short: "Convert a single session to a standardized archive",
		Long: `Convert one session from a raw operant-box log file.

The session is selected by whatever identity fields you supply; any
field left out is unconstrained. If the selection matches more than one
block in the file, the earliest block wins. Pass --photometry-root to
also match and align the session's fiber photometry recording.

Examples:
  # Behavior-only session, selected by date and start time
  medconv convert 95.259 --date 04/18/19 --time 10:41:42

  # Align the matching photometry folder as well
  medconv convert 139.298 --date 09/12/19 --photometry-root "FP Experiments/Photometry"

  # Optogenetics session with stimulation metadata
  medconv convert 266.477 --date 10/25/21 --group DLS-Excitatory --treatment ChR2`,
		Args: cobra.ExactArgs(1),
		RunE: convertCommand,
	}

	cmd.Flags().String("subject", "", "Subject id (e.g. 95.259)")
	cmd.Flags().String("date", "", "Session start date (MM/DD/YY)")
	cmd.Flags().String("time", "", "Session start time (HH:MM:SS)")
	cmd.Flags().String("msn", "", "Program (MSN) name")
	cmd.Flags().String("box", "", "Operant box number")
	cmd.Flags().String("photometry-root", "", "Root directory to search for photometry folders")
	cmd.Flags().String("group", "", "Experimental group (DLS-Excitatory, DMS-Excitatory, DMS-Inhibitory)")
	cmd.Flags().String("treatment", "", "Optogenetic treatment (ChR2, EYFP, ChR2Scrambled, NpHR, NpHRScrambled)")
	cmd.Flags().StringP("output-dir", "o", "conversion_nwb", "Directory for the output archive")
	cmd.Flags().Bool("overwrite", false, "Replace an existing output file")
	cmd.Flags().String("log-level", "info", "Logging verbosity (trace, debug, info, warn, error)")

	return cmd
}

func convertCommand(cmd *cobra.Command, args []string) error {
	logLevel, _ := cmd.Flags().GetString("log-level")
	log := logger.NewConsoleLogger(os.Stdout, logLevel)

	req, err := requestFromFlags(cmd, args[0])
	if err != nil {
		return err
	}

	agg := &session.Aggregator{}
	if root, _ := cmd.Flags().GetString("photometry-root"); root != "" {
		agg.Photometry = photometry.NewMatcher(root)
	}

	start := time.Now()
	record, skip, err := agg.Aggregate(req)
	if err != nil {
		return err
	}
	if skip != nil {
		log.LogWarn(fmt.Sprintf("Session %s is on the skip list: %s", req.Spec, skip.Reason))
		return nil
	}

	outputDir, _ := cmd.Flags().GetString("output-dir")
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	outPath, err := nwb.NewWriter(outputDir, overwrite).Write(record, archiveStem(record.Identity))
	if err != nil {
		return err
	}
	log.LogInfo(fmt.Sprintf("Converted %s in %s", record.Identity, time.Since(start).Round(time.Millisecond)))
	log.LogInfo(fmt.Sprintf("Wrote %s", outPath))
	return nil
}

// requestFromFlags assembles a session request from the identity flags.
func requestFromFlags(cmd *cobra.Command, logFile string) (session.Request, error) {
	subject, _ := cmd.Flags().GetString("subject")
	date, _ := cmd.Flags().GetString("date")
	startTime, _ := cmd.Flags().GetString("time")
	msn, _ := cmd.Flags().GetString("msn")
	box, _ := cmd.Flags().GetString("box")

	req := session.Request{
		BehaviorFile: logFile,
		Spec: medpc.MatchSpec{
			SubjectID: subject,
			Date:      date,
			StartTime: startTime,
			MSN:       msn,
			Box:       box,
		},
		SubjectID: session.CanonicalSubjectID(subject),
	}

	groupFlag, _ := cmd.Flags().GetString("group")
	treatmentFlag, _ := cmd.Flags().GetString("treatment")
	if groupFlag != "" {
		group, err := parseGroup(groupFlag)
		if err != nil {
			return session.Request{}, err
		}
		req.Group = group
	}
	if treatmentFlag != "" {
		treatment, err := parseTreatment(treatmentFlag)
		if err != nil {
			return session.Request{}, err
		}
		req.Treatment = treatment
	}
	return req, nil
}

func parseGroup(s string) (models.ExperimentalGroup, error) {
	for _, g := range []models.ExperimentalGroup{
		models.GroupDLSExcitatory,
		models.GroupDMSExcitatory,
		models.GroupDMSInhibitory,
	} {
		if strings.EqualFold(s, string(g)) {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown experimental group %q", s)
}

func parseTreatment(s string) (models.OptogeneticTreatment, error) {
	for _, t := range []models.OptogeneticTreatment{
		models.TreatmentChR2,
		models.TreatmentEYFP,
		models.TreatmentChR2Scrambled,
		models.TreatmentNpHR,
		models.TreatmentNpHRScrambled,
	} {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown treatment %q", s)
}

// archiveStem names the single-session output file.
func archiveStem(id models.SessionIdentity) string {
	stem := id.SubjectID
	if stem == "" {
		stem = "session"
	}
	if id.Date != "" {
		stem += "_" + strings.ReplaceAll(id.Date, "/", "-")
	}
	if id.StartTime != "" {
		stem += "_" + strings.ReplaceAll(id.StartTime, ":", "-")
	}
	return stem
}
