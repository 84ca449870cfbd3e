package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Prototype-1/UserDirectory/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Runs against a disposable database named by DIRECTORY_TEST_DB_URL.
func newIntegrationRepository(t *testing.T) *UserRepository {
	t.Helper()
	dbURL := os.Getenv("DIRECTORY_TEST_DB_URL")
	if dbURL == "" {
		t.Skip("DIRECTORY_TEST_DB_URL not set")
	}

	repo, err := NewUserRepository(dbURL, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, repo.EnsureSchema(ctx))

	_, err = repo.DB.Exec(ctx, `TRUNCATE "Customer", "Freelancer", "Contact", "Avatar", "SkillSet", "WorkExperience"`)
	require.NoError(t, err)
	return repo
}

func TestUserRepository_Integration(t *testing.T) {
	repo := newIntegrationRepository(t)
	ctx := context.Background()

	_, err := repo.DB.Exec(ctx, `
		INSERT INTO "Customer" ("id", "username", "firstName", "lastName", "email") VALUES ('c1', 'john', 'John', 'Doe', 'john@example.com');
		INSERT INTO "Contact" ("id", "phoneNumber", "city", "state", "country", "secondaryEmail", "customerId")
			VALUES ('ct1', ARRAY['+1 555'], 'Austin', 'TX', 'US', 'j@x.io', 'c1');
		INSERT INTO "Freelancer" ("id", "username", "firstName", "lastName", "email", "hourlyRate")
			VALUES ('f1', 'ana', 'Ana', 'Lee', 'ana@example.com', 40);
		INSERT INTO "SkillSet" ("id", "skillName", "freelancerId") VALUES ('s1', 'Go', 'f1');
		INSERT INTO "WorkExperience" ("id", "companyName", "designation", "location", "joinedDate", "freelancerId")
			VALUES ('w1', 'Acme', 'Engineer', 'Remote', '2021-03-01', 'f1');
	`)
	require.NoError(t, err)

	customers, err := repo.FetchCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	require.NotNil(t, customers[0].Contact)
	assert.Equal(t, "Austin", customers[0].Contact.City)
	assert.Nil(t, customers[0].Avatar)

	freelancers, err := repo.FetchFreelancers(ctx)
	require.NoError(t, err)
	require.Len(t, freelancers, 1)
	assert.Equal(t, []string{"Go"}, freelancers[0].SkillNames())
	require.Len(t, freelancers[0].WorkExperience, 1)
	assert.Equal(t, "Acme", freelancers[0].WorkExperience[0].CompanyName)

	require.NoError(t, repo.UpdateStatus(ctx, model.TableCustomer, "c1", model.StatusSuspended))
	customers, err = repo.FetchCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuspended, customers[0].Status)

	require.NoError(t, repo.Delete(ctx, model.TableFreelancer, "f1"))
	freelancers, err = repo.FetchFreelancers(ctx)
	require.NoError(t, err)
	assert.Empty(t, freelancers)

	assert.ErrorIs(t, repo.Delete(ctx, model.TableAvatar, "x"), ErrTableNotWritable)
}
