package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shelfgrid/platform/pkg/article"
	"github.com/shelfgrid/platform/pkg/common/logger"
	"github.com/shelfgrid/platform/pkg/common/models"
	"gorm.io/datatypes"
)

// Enqueuer records entity mutations on the sync queue. Satisfied by the
// sync queue service.
type Enqueuer interface {
	QueueCreate(ctx context.Context, storeID uuid.UUID, entityType string, entityID uuid.UUID, payload models.ChangePayload) error
	QueueUpdate(ctx context.Context, storeID uuid.UUID, entityType string, entityID uuid.UUID, payload models.ChangePayload) error
	QueueDelete(ctx context.Context, storeID uuid.UUID, entityType string, entityID uuid.UUID, payload models.ChangePayload) error
	QueueFullSync(ctx context.Context, storeID uuid.UUID) error
}

type Handler struct {
	repo  *Repository
	queue Enqueuer
}

func NewHandler(repo *Repository, queue Enqueuer) *Handler {
	return &Handler{repo: repo, queue: queue}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/stores", h.handleCreateStore).Methods(http.MethodPost)
	r.HandleFunc("/stores", h.handleListStores).Methods(http.MethodGet)
	r.HandleFunc("/stores/{id}", h.handleGetStore).Methods(http.MethodGet)
	r.HandleFunc("/stores/{id}/sync-enabled", h.handleSetSyncEnabled).Methods(http.MethodPut)

	r.HandleFunc("/stores/{id}/spaces", h.handleCreateSpace).Methods(http.MethodPost)
	r.HandleFunc("/stores/{id}/spaces", h.handleListSpaces).Methods(http.MethodGet)
	r.HandleFunc("/spaces/{id}", h.handleGetSpace).Methods(http.MethodGet)
	r.HandleFunc("/spaces/{id}", h.handleUpdateSpace).Methods(http.MethodPut)
	r.HandleFunc("/spaces/{id}", h.handleDeleteSpace).Methods(http.MethodDelete)

	r.HandleFunc("/stores/{id}/people", h.handleCreatePerson).Methods(http.MethodPost)
	r.HandleFunc("/stores/{id}/people", h.handleListPeople).Methods(http.MethodGet)
	r.HandleFunc("/people/{id}", h.handleGetPerson).Methods(http.MethodGet)
	r.HandleFunc("/people/{id}", h.handleUpdatePerson).Methods(http.MethodPut)
	r.HandleFunc("/people/{id}", h.handleDeletePerson).Methods(http.MethodDelete)

	r.HandleFunc("/stores/{id}/conference-rooms", h.handleCreateRoom).Methods(http.MethodPost)
	r.HandleFunc("/stores/{id}/conference-rooms", h.handleListRooms).Methods(http.MethodGet)
	r.HandleFunc("/conference-rooms/{id}", h.handleGetRoom).Methods(http.MethodGet)
	r.HandleFunc("/conference-rooms/{id}", h.handleUpdateRoom).Methods(http.MethodPut)
	r.HandleFunc("/conference-rooms/{id}", h.handleDeleteRoom).Methods(http.MethodDelete)
}

// Stores

func (h *Handler) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.AimsStoreCode == "" {
		http.Error(w, "name and aims_store_code are required", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	s := &StoreModel{
		ID:            uuid.New(),
		CompanyID:     req.CompanyID,
		Name:          req.Name,
		AimsStoreCode: req.AimsStoreCode,
		SyncEnabled:   true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.repo.CreateStore(r.Context(), s); err != nil {
		logger.Log.WithError(err).Error("failed to create store")
		http.Error(w, "failed to create store", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"store": s})
}

func (h *Handler) handleListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.repo.ListStores(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list stores")
		http.Error(w, "failed to list stores", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stores": stores})
}

func (h *Handler) handleGetStore(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid store id", http.StatusBadRequest)
		return
	}
	s, err := h.repo.GetStore(r.Context(), id)
	if errors.Is(err, ErrStoreNotFound) {
		http.Error(w, "store not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get store")
		http.Error(w, "failed to get store", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"store": s})
}

func (h *Handler) handleSetSyncEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid store id", http.StatusBadRequest)
		return
	}
	var req models.UpdateStoreSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.repo.SetSyncEnabled(r.Context(), id, req.SyncEnabled); err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			http.Error(w, "store not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to update store sync flag")
		http.Error(w, "failed to update store sync flag", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"store_id": id, "sync_enabled": req.SyncEnabled})
}

// Spaces

func (h *Handler) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid store id", http.StatusBadRequest)
		return
	}
	var req models.CreateSpaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ExternalID == "" || req.Name == "" {
		http.Error(w, "external_id and name are required", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	space := &SpaceModel{
		ID:         uuid.New(),
		StoreID:    storeID,
		ExternalID: req.ExternalID,
		Name:       req.Name,
		LabelCode:  req.LabelCode,
		Data:       datatypes.JSONMap(req.Data),
		SyncStatus: SyncStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.repo.CreateSpace(r.Context(), space); err != nil {
		logger.Log.WithError(err).Error("failed to create space")
		http.Error(w, "failed to create space", http.StatusInternalServerError)
		return
	}
	if err := h.enqueueChange(r.Context(), "create", storeID, models.EntityTypeSpace, space.ID, models.ChangePayload{
		ExternalID: space.ExternalID,
		LabelCode:  space.LabelCode,
		Data:       map[string]interface{}(space.Data),
	}); err != nil {
		http.Error(w, "space saved but sync enqueue failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"space": space})
}

func (h *Handler) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid store id", http.StatusBadRequest)
		return
	}
	spaces, err := h.repo.ListSpaces(r.Context(), storeID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list spaces")
		http.Error(w, "failed to list spaces", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"spaces": spaces})
}

func (h *Handler) handleGetSpace(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid space id", http.StatusBadRequest)
		return
	}
	space, err := h.repo.GetSpace(r.Context(), id)
	if errors.Is(err, ErrEntityNotFound) {
		http.Error(w, "space not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get space")
		http.Error(w, "failed to get space", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"space": space})
}

func (h *Handler) handleUpdateSpace(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid space id", http.StatusBadRequest)
		return
	}
	var req models.UpdateSpaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	space, err := h.repo.GetSpace(r.Context(), id)
	if errors.Is(err, ErrEntityNotFound) {
		http.Error(w, "space not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get space")
		http.Error(w, "failed to get space", http.StatusInternalServerError)
		return
	}

	if req.Name != nil {
		space.Name = *req.Name
	}
	if req.LabelCode != nil {
		space.LabelCode = *req.LabelCode
	}
	if req.Data != nil {
		space.Data = datatypes.JSONMap(req.Data)
	}
	space.SyncStatus = SyncStatusPending
	space.UpdatedAt = time.Now().UTC()

	if err := h.repo.UpdateSpace(r.Context(), space); err != nil {
		logger.Log.WithError(err).Error("failed to update space")
		http.Error(w, "failed to update space", http.StatusInternalServerError)
		return
	}
	if err := h.enqueueChange(r.Context(), "update", space.StoreID, models.EntityTypeSpace, space.ID, models.ChangePayload{
		ExternalID: space.ExternalID,
		LabelCode:  space.LabelCode,
		Data:       map[string]interface{}(space.Data),
	}); err != nil {
		http.Error(w, "space saved but sync enqueue failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"space": space})
}

func (h *Handler) handleDeleteSpace(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid space id", http.StatusBadRequest)
		return
	}
	space, err := h.repo.GetSpace(r.Context(), id)
	if errors.Is(err, ErrEntityNotFound) {
		http.Error(w, "space not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get space")
		http.Error(w, "failed to get space", http.StatusInternalServerError)
		return
	}

	// Snapshot the external key before the row disappears.
	payload := models.ChangePayload{ExternalID: space.ExternalID}
	if err := h.repo.DeleteSpace(r.Context(), id); err != nil {
		logger.Log.WithError(err).Error("failed to delete space")
		http.Error(w, "failed to delete space", http.StatusInternalServerError)
		return
	}
	if err := h.enqueueChange(r.Context(), "delete", space.StoreID, models.EntityTypeSpace, id, payload); err != nil {
		http.Error(w, "space deleted but sync enqueue failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// People

func (h *Handler) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid store id", http.StatusBadRequest)
		return
	}
	var req models.CreatePersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	person := &PersonModel{
		ID:              uuid.New(),
		StoreID:         storeID,
		Name:            req.Name,
		AssignedSpaceID: req.AssignedSpaceID,
		LabelCode:       req.LabelCode,
		Data:            datatypes.JSONMap(req.Data),
		SyncStatus:      SyncStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.repo.CreatePerson(r.Context(), person); err != nil {
		logger.Log.WithError(err).Error("failed to create person")
		http.Error(w, "failed to create person", http.StatusInternalServerError)
		return
	}
	if err := h.enqueueChange(r.Context(), "create", storeID, models.EntityTypePerson, person.ID, models.ChangePayload{
		ExternalID: person.AssignedSpaceID,
		LabelCode:  person.LabelCode,
		Data:       map[string]interface{}(person.Data),
	}); err != nil {
		http.Error(w, "person saved but sync enqueue failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"person": person})
}

func (h *Handler) handleListPeople(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid store id", http.StatusBadRequest)
		return
	}
	people, err := h.repo.ListPeople(r.Context(), storeID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list people")
		http.Error(w, "failed to list people", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"people": people})
}

func (h *Handler) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid person id", http.StatusBadRequest)
		return
	}
	person, err := h.repo.GetPerson(r.Context(), id)
	if errors.Is(err, ErrEntityNotFound) {
		http.Error(w, "person not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get person")
		http.Error(w, "failed to get person", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"person": person})
}

// handleUpdatePerson also covers seat moves. When the assigned space changes,
// the old slot's article is deleted before the new one is queued, so the
// vacated label clears.
func (h *Handler) handleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid person id", http.StatusBadRequest)
		return
	}
	var req models.UpdatePersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	person, err := h.repo.GetPerson(r.Context(), id)
	if errors.Is(err, ErrEntityNotFound) {
		http.Error(w, "person not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get person")
		http.Error(w, "failed to get person", http.StatusInternalServerError)
		return
	}

	previousSlot := person.AssignedSpaceID
	if req.Name != nil {
		person.Name = *req.Name
	}
	if req.AssignedSpaceID != nil {
		person.AssignedSpaceID = *req.AssignedSpaceID
	}
	if req.LabelCode != nil {
		person.LabelCode = *req.LabelCode
	}
	if req.Data != nil {
		person.Data = datatypes.JSONMap(req.Data)
	}
	person.SyncStatus = SyncStatusPending
	person.UpdatedAt = time.Now().UTC()

	if err := h.repo.UpdatePerson(r.Context(), person); err != nil {
		logger.Log.WithError(err).Error("failed to update person")
		http.Error(w, "failed to update person", http.StatusInternalServerError)
		return
	}

	if previousSlot != "" && previousSlot != person.AssignedSpaceID {
		if err := h.enqueueChange(r.Context(), "delete", person.StoreID, models.EntityTypePerson, person.ID, models.ChangePayload{
			ExternalID: previousSlot,
		}); err != nil {
			http.Error(w, "person saved but sync enqueue failed", http.StatusInternalServerError)
			return
		}
	}
	if err := h.enqueueChange(r.Context(), "update", person.StoreID, models.EntityTypePerson, person.ID, models.ChangePayload{
		ExternalID: person.AssignedSpaceID,
		LabelCode:  person.LabelCode,
		Data:       map[string]interface{}(person.Data),
	}); err != nil {
		http.Error(w, "person saved but sync enqueue failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"person": person})
}

func (h *Handler) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid person id", http.StatusBadRequest)
		return
	}
	person, err := h.repo.GetPerson(r.Context(), id)
	if errors.Is(err, ErrEntityNotFound) {
		http.Error(w, "person not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get person")
		http.Error(w, "failed to get person", http.StatusInternalServerError)
		return
	}

	payload := models.ChangePayload{ExternalID: person.AssignedSpaceID}
	if err := h.repo.DeletePerson(r.Context(), id); err != nil {
		logger.Log.WithError(err).Error("failed to delete person")
		http.Error(w, "failed to delete person", http.StatusInternalServerError)
		return
	}
	if err := h.enqueueChange(r.Context(), "delete", person.StoreID, models.EntityTypePerson, id, payload); err != nil {
		http.Error(w, "person deleted but sync enqueue failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Conference rooms

func (h *Handler) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid store id", http.StatusBadRequest)
		return
	}
	var req models.CreateConferenceRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ExternalID == "" || req.Name == "" {
		http.Error(w, "external_id and name are required", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	room := &ConferenceRoomModel{
		ID:         uuid.New(),
		StoreID:    storeID,
		ExternalID: req.ExternalID,
		Name:       req.Name,
		LabelCode:  req.LabelCode,
		Data:       datatypes.JSONMap(req.Data),
		SyncStatus: SyncStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.repo.CreateConferenceRoom(r.Context(), room); err != nil {
		logger.Log.WithError(err).Error("failed to create conference room")
		http.Error(w, "failed to create conference room", http.StatusInternalServerError)
		return
	}
	if err := h.enqueueChange(r.Context(), "create", storeID, models.EntityTypeConference, room.ID, models.ChangePayload{
		ExternalID: article.ConferenceKey(room.ExternalID),
		LabelCode:  room.LabelCode,
		Data:       map[string]interface{}(room.Data),
	}); err != nil {
		http.Error(w, "conference room saved but sync enqueue failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"conference_room": room})
}

func (h *Handler) handleListRooms(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid store id", http.StatusBadRequest)
		return
	}
	rooms, err := h.repo.ListConferenceRooms(r.Context(), storeID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list conference rooms")
		http.Error(w, "failed to list conference rooms", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conference_rooms": rooms})
}

func (h *Handler) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid conference room id", http.StatusBadRequest)
		return
	}
	room, err := h.repo.GetConferenceRoom(r.Context(), id)
	if errors.Is(err, ErrEntityNotFound) {
		http.Error(w, "conference room not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get conference room")
		http.Error(w, "failed to get conference room", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conference_room": room})
}

func (h *Handler) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid conference room id", http.StatusBadRequest)
		return
	}
	var req models.UpdateConferenceRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	room, err := h.repo.GetConferenceRoom(r.Context(), id)
	if errors.Is(err, ErrEntityNotFound) {
		http.Error(w, "conference room not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get conference room")
		http.Error(w, "failed to get conference room", http.StatusInternalServerError)
		return
	}

	if req.Name != nil {
		room.Name = *req.Name
	}
	if req.LabelCode != nil {
		room.LabelCode = *req.LabelCode
	}
	if req.Data != nil {
		room.Data = datatypes.JSONMap(req.Data)
	}
	room.SyncStatus = SyncStatusPending
	room.UpdatedAt = time.Now().UTC()

	if err := h.repo.UpdateConferenceRoom(r.Context(), room); err != nil {
		logger.Log.WithError(err).Error("failed to update conference room")
		http.Error(w, "failed to update conference room", http.StatusInternalServerError)
		return
	}
	if err := h.enqueueChange(r.Context(), "update", room.StoreID, models.EntityTypeConference, room.ID, models.ChangePayload{
		ExternalID: article.ConferenceKey(room.ExternalID),
		LabelCode:  room.LabelCode,
		Data:       map[string]interface{}(room.Data),
	}); err != nil {
		http.Error(w, "conference room saved but sync enqueue failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conference_room": room})
}

func (h *Handler) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid conference room id", http.StatusBadRequest)
		return
	}
	room, err := h.repo.GetConferenceRoom(r.Context(), id)
	if errors.Is(err, ErrEntityNotFound) {
		http.Error(w, "conference room not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get conference room")
		http.Error(w, "failed to get conference room", http.StatusInternalServerError)
		return
	}

	payload := models.ChangePayload{ExternalID: article.ConferenceKey(room.ExternalID)}
	if err := h.repo.DeleteConferenceRoom(r.Context(), id); err != nil {
		logger.Log.WithError(err).Error("failed to delete conference room")
		http.Error(w, "failed to delete conference room", http.StatusInternalServerError)
		return
	}
	if err := h.enqueueChange(r.Context(), "delete", room.StoreID, models.EntityTypeConference, id, payload); err != nil {
		http.Error(w, "conference room deleted but sync enqueue failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) enqueueChange(ctx context.Context, action string, storeID uuid.UUID, entityType string, entityID uuid.UUID, payload models.ChangePayload) error {
	var err error
	switch action {
	case "create":
		err = h.queue.QueueCreate(ctx, storeID, entityType, entityID, payload)
	case "update":
		err = h.queue.QueueUpdate(ctx, storeID, entityType, entityID, payload)
	case "delete":
		err = h.queue.QueueDelete(ctx, storeID, entityType, entityID, payload)
	}
	if err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"store_id":    storeID,
			"entity_type": entityType,
			"entity_id":   entityID,
			"action":      action,
		}).Error("failed to enqueue sync item")
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
