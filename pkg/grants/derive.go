package grants

import (
	"cmp"
	"slices"

	"github.com/alxnderia/ingestion/pkg/model"
	"github.com/alxnderia/ingestion/pkg/provider"
)

// Providers and resource types written to resource_access_grants.
const (
	ProviderAWS    = "aws"
	ProviderGCP    = "gcp"
	ProviderGithub = "github"

	ResourceAccount    = "account"
	ResourceProject    = "project"
	ResourceRepository = "repository"
)

// GCP IAM member types that produce grants.
const (
	gcpMemberUser  = "user"
	gcpMemberGroup = "group"
)

const awsPrincipalGroup = "GROUP"

// Derive returns the union of access facts in snap, before deduplication.
func Derive(snap *model.AccessSnapshot) []model.Grant {
	if snap == nil {
		return nil
	}
	links := indexLinks(snap.Links)

	var facts []model.Grant
	facts = append(facts, awsFacts(snap, links)...)
	facts = append(facts, gcpFacts(snap, links)...)
	facts = append(facts, githubFacts(snap, links)...)
	for i := range facts {
		facts[i].TenantID = snap.TenantID
	}
	return facts
}

type linkKey struct {
	providerType string
	userID       string
}

// linkIndex maps provider identities to canonical users.
type linkIndex map[linkKey]string

// indexLinks builds a linkIndex. The smallest canonical id wins if a key
// repeats.
func indexLinks(links []model.ProviderLink) linkIndex {
	idx := make(linkIndex, len(links))
	for _, l := range links {
		k := linkKey{l.ProviderType, l.ProviderUserID}
		if cur, ok := idx[k]; !ok || l.CanonicalUserID < cur {
			idx[k] = l.CanonicalUserID
		}
	}
	return idx
}

func (idx linkIndex) lookup(providerType, userID string) *string {
	if id, ok := idx[linkKey{providerType, userID}]; ok {
		return &id
	}
	return nil
}

func awsFacts(snap *model.AccessSnapshot, links linkIndex) []model.Grant {
	accounts := make(map[string]model.AwsAccount, len(snap.AwsAccounts))
	for _, a := range snap.AwsAccounts {
		accounts[a.AccountID] = a
	}
	groups := make(map[string][]model.AwsIdentityCenterGroup)
	for _, g := range snap.AwsGroups {
		groups[g.GroupID] = append(groups[g.GroupID], g)
	}
	users := make(map[string][]model.AwsIdentityCenterUser)
	for _, u := range snap.AwsUsers {
		users[u.UserID] = append(users[u.UserID], u)
	}
	members := make(map[string][]model.AwsIdentityCenterMembership)
	for _, m := range snap.AwsMemberships {
		members[m.GroupID] = append(members[m.GroupID], m)
	}

	var facts []model.Grant
	for _, aa := range snap.AwsAssignments {
		if aa.PrincipalType != awsPrincipalGroup {
			continue
		}
		account, ok := accounts[aa.AccountID]
		if !ok {
			continue
		}
		for _, grp := range groups[aa.PrincipalID] {
			facts = append(facts, model.Grant{
				Provider:            ProviderAWS,
				ResourceType:        ResourceAccount,
				ResourceID:          aa.AccountID,
				ResourceDisplayName: ptr(account.Name),
				SubjectType:         model.SubjectGroup,
				SubjectProviderID:   aa.PrincipalID,
				SubjectDisplayName:  ptr(grp.DisplayName),
				RoleOrPermission:    aa.PermissionSetName,
				AccessPath:          model.AccessPathDirect,
			})

			for _, m := range members[aa.PrincipalID] {
				for _, usr := range users[m.MemberUserID] {
					facts = append(facts, model.Grant{
						Provider:            ProviderAWS,
						ResourceType:        ResourceAccount,
						ResourceID:          aa.AccountID,
						ResourceDisplayName: ptr(account.Name),
						SubjectType:         model.SubjectUser,
						SubjectProviderID:   m.MemberUserID,
						SubjectDisplayName:  usr.DisplayName,
						CanonicalUserID:     links.lookup(provider.LinkAwsIdentityCenter, m.MemberUserID),
						RoleOrPermission:    aa.PermissionSetName,
						AccessPath:          model.AccessPathGroup,
						ViaGroupID:          ptr(aa.PrincipalID),
						ViaGroupDisplayName: ptr(grp.DisplayName),
					})
				}
			}
		}
	}
	return facts
}

func gcpFacts(snap *model.AccessSnapshot, links linkIndex) []model.Grant {
	projects := make(map[string]model.GcpProject, len(snap.GcpProjects))
	for _, p := range snap.GcpProjects {
		projects[p.ProjectID] = p
	}
	usersByEmail := make(map[string][]model.GoogleWorkspaceUser)
	for _, u := range snap.WorkspaceUsers {
		usersByEmail[u.PrimaryEmail] = append(usersByEmail[u.PrimaryEmail], u)
	}
	for _, us := range usersByEmail {
		slices.SortFunc(us, func(a, b model.GoogleWorkspaceUser) int {
			return cmp.Compare(a.GoogleID, b.GoogleID)
		})
	}
	groupsByEmail := make(map[string][]model.GoogleWorkspaceGroup)
	for _, g := range snap.WorkspaceGroups {
		groupsByEmail[g.Email] = append(groupsByEmail[g.Email], g)
	}

	var facts []model.Grant
	for _, ib := range snap.GcpBindings {
		project, ok := projects[ib.ProjectID]
		if !ok {
			continue
		}
		base := model.Grant{
			Provider:            ProviderGCP,
			ResourceType:        ResourceProject,
			ResourceID:          ib.ProjectID,
			ResourceDisplayName: project.DisplayName,
			SubjectProviderID:   ib.MemberID,
			RoleOrPermission:    ib.Role,
			AccessPath:          model.AccessPathDirect,
		}

		switch ib.MemberType {
		case gcpMemberUser:
			base.SubjectType = model.SubjectUser
			base.CanonicalUserID = workspaceLink(usersByEmail[ib.MemberID], links)
			matches := usersByEmail[ib.MemberID]
			if len(matches) == 0 {
				facts = append(facts, base)
				continue
			}
			for _, u := range matches {
				g := base
				g.SubjectDisplayName = u.NameFull
				facts = append(facts, g)
			}

		case gcpMemberGroup:
			base.SubjectType = model.SubjectGroup
			matches := groupsByEmail[ib.MemberID]
			if len(matches) == 0 {
				facts = append(facts, base)
				continue
			}
			for _, grp := range matches {
				g := base
				g.SubjectDisplayName = grp.Name
				facts = append(facts, g)
			}
		}
	}
	return facts
}

// workspaceLink returns the canonical user linked to the first of users
// that has a link.
func workspaceLink(users []model.GoogleWorkspaceUser, links linkIndex) *string {
	for _, u := range users {
		if id := links.lookup(provider.LinkGoogleWorkspace, u.GoogleID); id != nil {
			return id
		}
	}
	return nil
}

func githubFacts(snap *model.AccessSnapshot, links linkIndex) []model.Grant {
	repos := make(map[string]model.GithubRepository, len(snap.GithubRepos))
	for _, r := range snap.GithubRepos {
		repos[r.NodeID] = r
	}
	teams := make(map[string]model.GithubTeam, len(snap.GithubTeams))
	for _, t := range snap.GithubTeams {
		teams[t.NodeID] = t
	}
	users := make(map[string]model.GithubUser, len(snap.GithubUsers))
	for _, u := range snap.GithubUsers {
		users[u.NodeID] = u
	}

	var facts []model.Grant
	for _, p := range snap.GithubTeamPerms {
		repo, ok := repos[p.RepoNodeID]
		if !ok {
			continue
		}
		team, ok := teams[p.TeamNodeID]
		if !ok {
			continue
		}
		facts = append(facts, model.Grant{
			Provider:            ProviderGithub,
			ResourceType:        ResourceRepository,
			ResourceID:          p.RepoNodeID,
			ResourceDisplayName: ptr(repo.FullName),
			SubjectType:         model.SubjectTeam,
			SubjectProviderID:   p.TeamNodeID,
			SubjectDisplayName:  ptr(team.Name),
			RoleOrPermission:    p.Permission,
			AccessPath:          model.AccessPathDirect,
		})
	}
	for _, p := range snap.GithubCollabPerms {
		repo, ok := repos[p.RepoNodeID]
		if !ok {
			continue
		}
		user, ok := users[p.UserNodeID]
		if !ok {
			continue
		}
		facts = append(facts, model.Grant{
			Provider:            ProviderGithub,
			ResourceType:        ResourceRepository,
			ResourceID:          p.RepoNodeID,
			ResourceDisplayName: ptr(repo.FullName),
			SubjectType:         model.SubjectUser,
			SubjectProviderID:   p.UserNodeID,
			SubjectDisplayName:  user.Name,
			CanonicalUserID:     links.lookup(provider.LinkGithub, p.UserNodeID),
			RoleOrPermission:    p.Permission,
			AccessPath:          model.AccessPathDirect,
		})
	}
	return facts
}

func ptr(s string) *string {
	return &s
}
