package clients

import (
	"context"
	"fmt"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/skk/jds-backend/internal/shared"
)

// RepositoryPort defines data access methods for clients.
type RepositoryPort interface {
	List(ctx context.Context) ([]Client, error)
	Get(ctx context.Context, id int64) (*Client, error)
	Search(ctx context.Context, name string) ([]Client, error)
	ListAssignedTo(ctx context.Context, userID int64) ([]Client, error)
	Create(ctx context.Context, c Client) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	AssignUser(ctx context.Context, clientID, userID int64) error
	RemoveUser(ctx context.Context, clientID int64) error
	AssignedUser(ctx context.Context, clientID int64) (*UserSummary, error)
}

// ReferenceSource issues reference numbers for newly registered clients.
type ReferenceSource interface {
	Next(ctx context.Context, scope string) (string, error)
}

// Service handles client business logic.
type Service struct {
	repo     RepositoryPort
	sequence ReferenceSource
	collator *collate.Collator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, sequence ReferenceSource) *Service {
	return &Service{
		repo:     repo,
		sequence: sequence,
		collator: collate.New(language.English, collate.IgnoreCase),
	}
}

// sortByName orders clients by last then first name using locale-aware
// collation, so accented names land where a person would look for them.
func (s *Service) sortByName(list []Client) {
	s.collator.Sort(clientsByName{list: list})
}

type clientsByName struct {
	list []Client
}

func (c clientsByName) Len() int { return len(c.list) }

func (c clientsByName) Swap(i, j int) { c.list[i], c.list[j] = c.list[j], c.list[i] }

func (c clientsByName) Bytes(i int) []byte {
	return []byte(c.list[i].LastName + "\x00" + c.list[i].FirstName)
}

// List returns all clients in display order.
func (s *Service) List(ctx context.Context) ([]Client, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	s.sortByName(list)
	return list, nil
}

// Get returns one client.
func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	return s.repo.Get(ctx, id)
}

// Search returns clients whose first or last name contains the term.
func (s *Service) Search(ctx context.Context, name string) ([]Client, error) {
	list, err := s.repo.Search(ctx, name)
	if err != nil {
		return nil, err
	}
	s.sortByName(list)
	return list, nil
}

// ListAssignedTo returns the clients assigned to a user.
func (s *Service) ListAssignedTo(ctx context.Context, userID int64) ([]Client, error) {
	return s.repo.ListAssignedTo(ctx, userID)
}

// Create registers a client, issuing a reference number when none is supplied.
func (s *Service) Create(ctx context.Context, req CreateClientRequest, creatorID int64) (*Client, error) {
	ref := ""
	if req.ReferenceNumber != nil && *req.ReferenceNumber != "" {
		ref = *req.ReferenceNumber
	} else {
		var err error
		ref, err = s.sequence.Next(ctx, shared.SequenceScopeClient)
		if err != nil {
			return nil, fmt.Errorf("issue client reference: %w", err)
		}
	}

	c := Client{
		ReferenceNumber: ref,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		NINumber:        req.NINumber,
		Phone:           req.Phone,
		Address:         req.Address,
		Company:         req.Company,
		Occupation:      req.Occupation,
		AdditionalNote:  req.AdditionalNote,
		ConflictComment: req.ConflictComment,
		CreatedBy:       &creatorID,
	}
	if req.HasConflict != nil {
		c.HasConflict = *req.HasConflict
	}

	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	c.ID = id

	if req.AssignedUserID != nil {
		if err := s.repo.AssignUser(ctx, id, *req.AssignedUserID); err != nil {
			return nil, fmt.Errorf("assign user to client: %w", err)
		}
	}
	return s.repo.Get(ctx, id)
}

// Update applies the requested changes to a client.
func (s *Service) Update(ctx context.Context, id int64, req UpdateClientRequest) (*Client, error) {
	updates := map[string]any{}
	if req.FirstName != nil {
		updates["firstname"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["lastname"] = *req.LastName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.NINumber != nil {
		updates["ni_number"] = *req.NINumber
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Company != nil {
		updates["company"] = *req.Company
	}
	if req.Occupation != nil {
		updates["occupation"] = *req.Occupation
	}
	if req.AdditionalNote != nil {
		updates["additional_note"] = *req.AdditionalNote
	}
	if req.HasConflict != nil {
		updates["has_conflict_of_interest"] = *req.HasConflict
	}
	if req.ConflictComment != nil {
		updates["conflict_of_interest_comment"] = *req.ConflictComment
	}
	if req.ReferenceNumber != nil {
		updates["reference_number"] = *req.ReferenceNumber
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a client.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// AssignUser links a user to the client.
func (s *Service) AssignUser(ctx context.Context, clientID, userID int64) (*Client, error) {
	if _, err := s.repo.Get(ctx, clientID); err != nil {
		return nil, err
	}
	if err := s.repo.AssignUser(ctx, clientID, userID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, clientID)
}

// RemoveUser clears the client's user assignment.
func (s *Service) RemoveUser(ctx context.Context, clientID int64) (*Client, error) {
	if _, err := s.repo.Get(ctx, clientID); err != nil {
		return nil, err
	}
	if err := s.repo.RemoveUser(ctx, clientID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, clientID)
}

// AssignedUser returns the user currently assigned to the client.
func (s *Service) AssignedUser(ctx context.Context, clientID int64) (*UserSummary, error) {
	return s.repo.AssignedUser(ctx, clientID)
}
