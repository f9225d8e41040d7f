package data

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/woodlandhills/snowcam/model"
	"github.com/woodlandhills/snowcam/service/config"
)

// Bounded so the side files never grow without limit on a long-running box.
const maxPersistedEntities = 1000

type filesDBService struct {
	CfgSvc config.IService
}

func NewFilesDB(cfgsvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgsvc,
	}
}

func (svc *filesDBService) NewError(err interface{}) error {
	// Determine if the error is custom
	var customErr model.CustomError
	if custom, ok := err.(model.CustomError); ok {
		customErr = custom
	} else {
		customErr.Processor = "N/A"
		customErr.Inner = err.(error)
		customErr.Message = err.(error).Error()
		customErr.StackTrace = "N/A"
		customErr.Misc = nil
	}

	// Create an error object to persist
	errorData := struct {
		Timestamp  int64                  `json:"timestamp"`
		Processor  string                 `json:"processor"`
		Inner      string                 `json:"innerError"`
		Message    string                 `json:"message"`
		StackTrace string                 `json:"stackTrace"`
		Misc       map[string]interface{} `json:"misc"`
	}{
		Timestamp:  time.Now().Unix(),
		Processor:  customErr.Processor,
		Inner:      customErr.Inner.Error(),
		Message:    customErr.Message,
		StackTrace: customErr.StackTrace,
		Misc:       customErr.Misc,
	}
	return newEntity(errorData, "errors", svc.CfgSvc)
}

func (svc *filesDBService) NewAnalysisResult(result model.AnalysisResult) error {
	return newEntity(result, "analysis-results", svc.CfgSvc)
}

func (svc *filesDBService) NewCaptureStats(stats model.CaptureStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(stats, "capture-stats", svc.CfgSvc)
}

func (svc *filesDBService) NewSequenceStats(stats model.SequenceStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(stats, "sequence-stats", svc.CfgSvc)
}

func (svc *filesDBService) RetrieveAnalysisResults() ([]model.AnalysisResult, error) {
	return retrieveEntites[model.AnalysisResult]("analysis-results", svc.CfgSvc)
}

func newEntity[T any](entity T, filename string, cfgsvc config.IService) error {
	entities, err := retrieveEntites[T](filename, cfgsvc)
	if err != nil {
		return err
	}

	entities = append(entities, entity)
	if len(entities) > maxPersistedEntities {
		entities = entities[len(entities)-maxPersistedEntities:]
	}

	// Marshal the entity data to JSON
	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return err
	}

	// Write the JSON data to the file (with truncation)
	output := fmt.Sprintf("%s/%s.json", cfgsvc.GetDataFolder(), filename)
	err = os.WriteFile(output, data, 0644)
	if err != nil {
		return err
	}

	return nil
}

func retrieveEntites[T any](filename string, cfgsvc config.IService) ([]T, error) {
	var entities []T

	data, err := os.ReadFile(fmt.Sprintf("%s/%s.json", cfgsvc.GetDataFolder(), filename))
	if err != nil {
		// WARNING: File not found, return empty slice
		return entities, nil
	}

	entities = []T{}
	err = json.Unmarshal(data, &entities)
	if err != nil {
		return entities, err
	}

	return entities, nil
}
