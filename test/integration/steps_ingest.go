package integration

import (
	"context"
	"fmt"

	"github.com/alxnderia/ingestion/pkg/grants"
	"github.com/alxnderia/ingestion/pkg/ingest"
	"github.com/alxnderia/ingestion/pkg/provider"
	"github.com/alxnderia/ingestion/pkg/store"
	gormstore "github.com/alxnderia/ingestion/pkg/store/gorm"
)

const testIdentityStore = "d-1234567890"

func (s *StepsContext) iUpsertTheGoogleWorkspaceUser(googleID, email string) error {
	writer := ingest.NewWriter(gormstore.NewUpsertStore(s.tc.DB), store.PageSize)
	_, err := writer.Write(context.Background(), store.Batch{
		Table:           "google_workspace_users",
		Columns:         []string{"tenant_id", "google_id", "primary_email", "raw_response"},
		Rows:            [][]any{{s.tenant, googleID, email, store.JSON(map[string]string{"id": googleID})}},
		ConflictColumns: []string{"tenant_id", "google_id"},
		UpdateColumns:   []string{"primary_email", "raw_response"},
	})
	return err
}

func (s *StepsContext) theGoogleWorkspaceUserHasEmail(googleID, expected string) error {
	var email string
	if err := s.tc.DB.Raw(
		"SELECT primary_email FROM google_workspace_users WHERE tenant_id = ? AND google_id = ?",
		s.tenant, googleID,
	).Scan(&email).Error; err != nil {
		return err
	}
	if email != expected {
		return fmt.Errorf("expected email %q, got %q", expected, email)
	}
	return nil
}

func (s *StepsContext) aCanonicalUserWithEmail(email string) error {
	var id string
	if err := s.tc.DB.Raw(
		"INSERT INTO canonical_users (tenant_id, display_name) VALUES (?, ?) RETURNING id",
		s.tenant, email,
	).Scan(&id).Error; err != nil {
		return err
	}
	return s.tc.DB.Exec(
		"INSERT INTO canonical_emails (tenant_id, email, canonical_user_id) VALUES (?, ?, ?)",
		s.tenant, email, id,
	).Error
}

func (s *StepsContext) theAWSAccountNamed(accountID, name string) error {
	return s.tc.DB.Exec(
		"INSERT INTO aws_accounts (tenant_id, account_id, name) VALUES (?, ?, ?)",
		s.tenant, accountID, name,
	).Error
}

func (s *StepsContext) theAWSIdentityCenterUser(userID, email string) error {
	return s.tc.DB.Exec(
		"INSERT INTO aws_identity_center_users (tenant_id, identity_store_id, user_id, user_name, email) VALUES (?, ?, ?, ?, ?)",
		s.tenant, testIdentityStore, userID, email, email,
	).Error
}

func (s *StepsContext) theAWSGroupContainingUser(groupID, name, userID string) error {
	if err := s.tc.DB.Exec(
		"INSERT INTO aws_identity_center_groups (tenant_id, identity_store_id, group_id, display_name) VALUES (?, ?, ?, ?)",
		s.tenant, testIdentityStore, groupID, name,
	).Error; err != nil {
		return err
	}
	return s.tc.DB.Exec(
		"INSERT INTO aws_identity_center_memberships (tenant_id, identity_store_id, membership_id, group_id, member_user_id) VALUES (?, ?, ?, ?, ?)",
		s.tenant, testIdentityStore, groupID+"/"+userID, groupID, userID,
	).Error
}

func (s *StepsContext) theAWSGroupIsAssigned(groupID, permissionSet, accountID string) error {
	return s.tc.DB.Exec(`
		INSERT INTO aws_account_assignments
			(tenant_id, identity_store_id, account_id, permission_set_arn, permission_set_name, principal_type, principal_id)
		VALUES (?, ?, ?, ?, ?, 'GROUP', ?)`,
		s.tenant, testIdentityStore, accountID, "arn:aws:sso:::permissionSet/"+permissionSet, permissionSet, groupID,
	).Error
}

func (s *StepsContext) theGithubUserWithEmail(nodeID, email string) error {
	return s.tc.DB.Exec(
		"INSERT INTO github_users (tenant_id, github_id, node_id, login, email) VALUES (?, ?, ?, ?, ?)",
		s.tenant, 1, nodeID, nodeID, email,
	).Error
}

func (s *StepsContext) iRunPostProcessing() error {
	results, err := s.app().Runner.PostProcess(context.Background())
	if err != nil {
		return err
	}
	s.results = results
	return nil
}

func (s *StepsContext) theResultShouldBe(key string, expected int) error {
	got, ok := s.results[key]
	if !ok {
		return fmt.Errorf("result %q missing from %v", key, s.results)
	}
	if got != int64(expected) {
		return fmt.Errorf("expected %s = %d, got %d", key, expected, got)
	}
	return nil
}

func (s *StepsContext) theAWSUserShouldBeLinked(userID, email string) error {
	var matched int64
	if err := s.tc.DB.Raw(`
		SELECT COUNT(*) FROM canonical_user_provider_links l
		JOIN canonical_emails e ON e.tenant_id = l.tenant_id AND e.canonical_user_id = l.canonical_user_id
		WHERE l.tenant_id = ? AND l.provider_type = ? AND l.provider_user_id = ? AND e.email = ?`,
		s.tenant, provider.LinkAwsIdentityCenter, userID, email,
	).Scan(&matched).Error; err != nil {
		return err
	}
	if matched != 1 {
		return fmt.Errorf("expected %s to be linked to %s, found %d links", userID, email, matched)
	}
	return nil
}

func (s *StepsContext) aLiveGrantShouldBelongTo(accessPath, accountID, email string) error {
	var matched int64
	if err := s.tc.DB.Raw(`
		SELECT COUNT(*) FROM resource_access_grants g
		JOIN canonical_emails e ON e.tenant_id = g.tenant_id AND e.canonical_user_id = g.canonical_user_id
		WHERE g.tenant_id = ? AND g.deleted_at IS NULL
			AND g.provider = ? AND g.resource_type = ? AND g.resource_id = ?
			AND g.access_path = ? AND e.email = ?`,
		s.tenant, grants.ProviderAWS, grants.ResourceAccount, accountID, accessPath, email,
	).Scan(&matched).Error; err != nil {
		return err
	}
	if matched != 1 {
		return fmt.Errorf("expected one %s grant on %s for %s, found %d", accessPath, accountID, email, matched)
	}
	return nil
}

func (s *StepsContext) pendingReconciliationEntries(expected int, providerName string) error {
	typ, err := provider.TypeString(providerName)
	if err != nil {
		return err
	}
	var n int64
	if err := s.tc.DB.Raw(
		"SELECT COUNT(*) FROM identity_reconciliation_queue WHERE tenant_id = ? AND provider_type = ? AND status = 'PENDING'",
		s.tenant, typ.LinkType(),
	).Scan(&n).Error; err != nil {
		return err
	}
	if n != int64(expected) {
		return fmt.Errorf("expected %d pending entries, got %d", expected, n)
	}
	return nil
}
