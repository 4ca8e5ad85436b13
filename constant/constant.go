package constant

type RecordingStatus string

const (
	RecordingStatusInProgress RecordingStatus = "In Progress"
	RecordingStatusUploading  RecordingStatus = "Uploading"
	RecordingStatusCompleted  RecordingStatus = "Completed"
)

func (s RecordingStatus) String() string {
	return string(s)
}

// recordingTransitions is the allowed forward progression. Completed is
// terminal: nothing leaves it.
var recordingTransitions = map[RecordingStatus][]RecordingStatus{
	RecordingStatusInProgress: {RecordingStatusUploading, RecordingStatusCompleted},
	RecordingStatusUploading:  {RecordingStatusCompleted},
	RecordingStatusCompleted:  {},
}

func (s RecordingStatus) CanTransition(to RecordingStatus) bool {
	if s == to {
		return true
	}
	for _, next := range recordingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type ChunkStatus string

const (
	ChunkStatusCreated  ChunkStatus = "created"
	ChunkStatusUploaded ChunkStatus = "uploaded"
)

func (s ChunkStatus) String() string {
	return string(s)
}

// A failed upload leaves a chunk in created; uploaded is terminal.
func (s ChunkStatus) CanTransition(to ChunkStatus) bool {
	if s == to {
		return true
	}
	return s == ChunkStatusCreated && to == ChunkStatusUploaded
}

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
