// Package accounts manages the credential lifecycle of user accounts:
// registration with uniqueness checks, bcrypt password storage, email
// confirmation and password reset.
//
// Manager:
//   - Save runs the registration pipeline: duplicate check for new accounts,
//     validation, confirmation code generation, hashing and persistence. The
//     stored hash is never recomputed when the password did not change.
//   - Confirm and ConfirmByCode move an account to the terminal confirmed
//     state and invalidate its confirmation code.
//   - ForgotPassword issues a reset token, ResetPassword and
//     ResetPasswordWithToken consume it in the same write that stores the new
//     hash, so a token can only be used once.
//
// Storage is abstracted by Repository. The repository package provides Bun
// (sqlite, postgres, mysql) and in-memory implementations and maps storage
// level unique violations so that Save reports them as duplicated
// credentials.
//
// Notifications:
//   - Confirmation and reset emails go through a Notifier. Delivery runs in
//     the background and failures are logged, never unwinding a completed
//     operation. Call Manager.Wait before shutting down.
//
// Activity sinks:
//   - ActivitySink receives registration, confirmation and password reset
//     events. Sinks run best-effort (errors are logged).
package accounts
