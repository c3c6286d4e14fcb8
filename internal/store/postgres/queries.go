package postgres

const jobColumns = `
    id, title, company, location, salary, type, experience,
    description, skills, email, employer_id,
    status, payment_status, payment_id,
    created_at, updated_at, expires_at`

const paymentColumns = `
    id, job_id, employer_id, gateway_order_id, gateway_payment_id,
    amount, currency, status, created_at, updated_at`

const applicationColumns = `
    id, job_id, applicant_id, name, email, phone, resume_url, cover_letter,
    status, created_at, updated_at`

const queryUpsertUser = `
INSERT INTO users (id, email, first_name, last_name, profile_image_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (id) DO UPDATE
SET email = EXCLUDED.email,
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name,
    profile_image_url = EXCLUDED.profile_image_url,
    updated_at = EXCLUDED.updated_at
RETURNING id, email, first_name, last_name, profile_image_url, created_at, updated_at
`

const queryGetUser = `
SELECT id, email, first_name, last_name, profile_image_url, created_at, updated_at
FROM users
WHERE id = $1
`

const queryInsertJob = `
INSERT INTO jobs (` + jobColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
`

const queryGetJob = `
SELECT ` + jobColumns + `
FROM jobs
WHERE id = $1
  AND status <> 'deleted'
`

const queryUpdateJobContent = `
UPDATE jobs
SET title = $2, company = $3, location = $4, salary = $5, type = $6,
    experience = $7, description = $8, skills = $9, email = $10,
    updated_at = $11
WHERE id = $1
  AND status <> 'deleted'
`

const querySoftDeleteJob = `
UPDATE jobs
SET status = 'deleted', updated_at = $3
WHERE id = $1
  AND employer_id = $2
  AND status <> 'deleted'
`

const queryListJobsByEmployer = `
SELECT ` + jobColumns + `
FROM jobs
WHERE employer_id = $1
  AND status <> 'deleted'
ORDER BY created_at DESC
`

// queryActivateJob is the draft -> active transition. It is the only
// statement that sets a job active.
const queryActivateJob = `
UPDATE jobs
SET status = 'active', payment_status = 'completed', payment_id = $2,
    expires_at = $3, updated_at = $4
WHERE id = $1
  AND status = 'draft'
`

const queryMarkJobPaymentFailed = `
UPDATE jobs
SET payment_status = 'failed', updated_at = $2
WHERE id = $1
  AND status = 'draft'
`

const queryExpireJobs = `
WITH due AS (
    SELECT id FROM jobs
    WHERE status = 'active'
      AND expires_at < $1
    ORDER BY expires_at ASC
    LIMIT $2
    FOR UPDATE SKIP LOCKED
)
UPDATE jobs
SET status = 'expired', updated_at = $1
FROM due
WHERE jobs.id = due.id
`

const queryInsertPayment = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

const queryGetPayment = `
SELECT ` + paymentColumns + `
FROM payments
WHERE id = $1
`

const querySetPaymentOrder = `
UPDATE payments
SET gateway_order_id = $2, updated_at = $3
WHERE id = $1
  AND status = 'pending'
`

const queryCompletePayment = `
UPDATE payments
SET status = 'completed', gateway_payment_id = $2, updated_at = $3
WHERE id = $1
  AND status = 'pending'
`

const queryFailPayment = `
UPDATE payments
SET status = 'failed', gateway_payment_id = $2, updated_at = $3
WHERE id = $1
  AND status = 'pending'
`

const queryGetPaymentStatus = `
SELECT status FROM payments WHERE id = $1
`

const queryListPaymentsByEmployer = `
SELECT ` + paymentColumns + `
FROM payments
WHERE employer_id = $1
ORDER BY created_at DESC
`

const queryListCompletedDraftPayments = `
SELECT p.id, p.job_id, p.employer_id, p.gateway_order_id, p.gateway_payment_id,
       p.amount, p.currency, p.status, p.created_at, p.updated_at
FROM payments p
JOIN jobs j ON j.id = p.job_id
WHERE p.status = 'completed'
  AND j.status = 'draft'
ORDER BY p.updated_at ASC
LIMIT $1
`

const queryListOrphanedPayments = `
SELECT ` + paymentColumns + `
FROM payments
WHERE status = 'pending'
  AND created_at < $1
ORDER BY created_at ASC
LIMIT $2
`

const queryCountOrphanedPayments = `
SELECT COUNT(*) FROM payments
WHERE status = 'pending'
  AND created_at < $1
`

const queryInsertApplication = `
INSERT INTO applications (` + applicationColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

const queryGetApplication = `
SELECT ` + applicationColumns + `
FROM applications
WHERE id = $1
`

const queryListApplicationsByJob = `
SELECT ` + applicationColumns + `
FROM applications
WHERE job_id = $1
ORDER BY created_at DESC
`

const queryListApplicationsByApplicant = `
SELECT ` + applicationColumns + `
FROM applications
WHERE applicant_id = $1
ORDER BY created_at DESC
`

const queryUpdateApplicationStatus = `
UPDATE applications
SET status = $2, updated_at = $3
WHERE id = $1
RETURNING ` + applicationColumns

// queryDashboardStats aggregates in one round trip. Applications to
// deleted jobs are excluded.
const queryDashboardStats = `
SELECT
    (SELECT COUNT(*) FROM jobs
      WHERE employer_id = $1 AND status = 'active'),
    (SELECT COUNT(*) FROM applications a
      JOIN jobs j ON j.id = a.job_id
      WHERE j.employer_id = $1 AND j.status <> 'deleted'),
    (SELECT COUNT(*) FROM applications a
      JOIN jobs j ON j.id = a.job_id
      WHERE j.employer_id = $1 AND j.status <> 'deleted' AND a.status = 'pending'),
    (SELECT COALESCE(SUM(amount), 0) FROM payments
      WHERE employer_id = $1 AND status = 'completed')
`
